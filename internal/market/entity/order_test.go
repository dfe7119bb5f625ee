package entity

import (
	"testing"
)

func TestAddItemAccumulatesQty(t *testing.T) {
	o := &Order{ID: "o1"}
	o.AddItem("ITM-001", "水泥", 3, 100)
	o.AddItem("ITM-001", "水泥", 2, 100)

	if len(o.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(o.Items))
	}
	if o.Items[0].Qty != 5 {
		t.Fatalf("expected qty 5, got %v", o.Items[0].Qty)
	}
	if o.Items[0].TotalCost != 500 {
		t.Fatalf("expected line total 500, got %v", o.Items[0].TotalCost)
	}
	if o.TotalQty != 5 || o.TotalAmount != 500 {
		t.Fatalf("expected order totals 5/500, got %v/%v", o.TotalQty, o.TotalAmount)
	}
}

func TestAddItemKeepsOriginalSnapshot(t *testing.T) {
	o := &Order{ID: "o1"}
	o.AddItem("ITM-001", "水泥", 3, 100)
	// 再次加购传入新价格，行金额仍按首次快照计算
	o.AddItem("ITM-001", "水泥", 2, 150)

	if o.Items[0].UnitPrice != 100 {
		t.Fatalf("expected original snapshot 100, got %v", o.Items[0].UnitPrice)
	}
	if o.Items[0].TotalCost != 500 {
		t.Fatalf("expected line total 500, got %v", o.Items[0].TotalCost)
	}
}

func TestOrderTotalsInvariant(t *testing.T) {
	o := &Order{ID: "o1"}
	o.AddItem("ITM-001", "水泥", 3, 100)
	o.AddItem("ITM-002", "螺纹钢", 2, 250)

	if o.TotalQty != 5 {
		t.Fatalf("expected total qty 5, got %v", o.TotalQty)
	}
	if o.TotalAmount != 800 {
		t.Fatalf("expected total amount 800, got %v", o.TotalAmount)
	}

	if !o.RemoveItem("ITM-002") {
		t.Fatal("expected ITM-002 removed")
	}
	if o.TotalQty != 3 || o.TotalAmount != 300 {
		t.Fatalf("after remove: expected totals 3/300, got %v/%v", o.TotalQty, o.TotalAmount)
	}
}

func TestRemoveItemToEmpty(t *testing.T) {
	o := &Order{ID: "o1"}
	o.AddItem("ITM-001", "水泥", 3, 100)

	if !o.RemoveItem("ITM-001") {
		t.Fatal("expected item removed")
	}
	if len(o.Items) != 0 {
		t.Fatalf("expected empty item list, got %d", len(o.Items))
	}
	if o.TotalQty != 0 || o.TotalAmount != 0 {
		t.Fatalf("expected zero totals, got %v/%v", o.TotalQty, o.TotalAmount)
	}
	if o.RemoveItem("ITM-001") {
		t.Fatal("removing missing item should return false")
	}
}

func TestRecalcWithPromoDiscount(t *testing.T) {
	o := &Order{ID: "o1"}
	o.AddItem("ITM-001", "水泥", 3, 100)

	o.PromoDiscount = 50
	o.Recalc()
	if o.TotalAmount != 250 {
		t.Fatalf("expected 250 after discount, got %v", o.TotalAmount)
	}

	// 折扣超过订单金额时钳到 0
	o.PromoDiscount = 500
	o.Recalc()
	if o.TotalAmount != 0 {
		t.Fatalf("expected 0 when discount exceeds total, got %v", o.TotalAmount)
	}
}

func TestPlaced(t *testing.T) {
	o := &Order{ID: "o1"}
	if o.Placed() {
		t.Fatal("order without order date is a cart")
	}
}
