package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/xuri/excelize/v2"
)

var orderExportHeaders = []string{
	"订单号", "发票号", "客户ID", "供应商ID", "状态",
	"总数量", "总金额", "促销码", "促销折扣", "收货地址", "下单时间",
}

// ExportOrders 导出订单 xlsx。只导出已提交订单，最多一万行
func (s *OrderService) ExportOrders(ctx context.Context, params repository.OrderListParams) (*excelize.File, error) {
	params.PlacedOnly = true
	params.Page = 1
	params.Size = 10000
	orders, _, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "订单"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	for i, h := range orderExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	colWidths := []float64{20, 20, 34, 34, 16, 10, 12, 14, 10, 40, 20}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	for i, o := range orders {
		row := i + 2
		orderDate := ""
		if o.OrderDate != nil {
			orderDate = o.OrderDate.Format("2006-01-02 15:04:05")
		}
		values := []interface{}{
			o.LeadID, o.InvcNum, o.CustomerID, o.VendorID, o.Status,
			o.TotalQty, o.TotalAmount, o.PromoCode, o.PromoDiscount,
			o.DeliveryAddress, orderDate,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	return f, nil
}
