package entity

import (
	"fmt"
	"strings"
)

// 订单状态，主线单向推进，cancelled 可从除 delivered 外的任意状态进入
const (
	OrderStatusPending        = "pending"
	OrderStatusVendorAccepted = "vendor_accepted"
	OrderStatusPaymentDone    = "payment_done"
	OrderStatusConfirmed      = "order_confirmed"
	OrderStatusTruckLoading   = "truck_loading"
	OrderStatusInTransit      = "in_transit"
	OrderStatusShipped        = "shipped"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// orderStatusFlow 主线状态及序号
var orderStatusFlow = []string{
	OrderStatusPending,
	OrderStatusVendorAccepted,
	OrderStatusPaymentDone,
	OrderStatusConfirmed,
	OrderStatusTruckLoading,
	OrderStatusInTransit,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

var orderStatusRank = func() map[string]int {
	m := make(map[string]int, len(orderStatusFlow))
	for i, s := range orderStatusFlow {
		m[s] = i
	}
	return m
}()

// OrderStatusRank 主线状态序号，cancelled 等非主线状态返回 -1
func OrderStatusRank(status string) int {
	if r, ok := orderStatusRank[status]; ok {
		return r
	}
	return -1
}

// ValidOrderStatus 判断状态是否在枚举内
func ValidOrderStatus(status string) bool {
	if status == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[status]
	return ok
}

// OrderStatusTerminal 终态判断
func OrderStatusTerminal(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// NextOrderStatuses 当前状态的合法去向：主线下一步，以及非终态可取消
func NextOrderStatuses(current string) []string {
	if OrderStatusTerminal(current) {
		return nil
	}
	var next []string
	if r, ok := orderStatusRank[current]; ok && r+1 < len(orderStatusFlow) {
		next = append(next, orderStatusFlow[r+1])
	}
	next = append(next, OrderStatusCancelled)
	return next
}

// CanTransitionOrderStatus 通用状态机边检查
func CanTransitionOrderStatus(from, to string) bool {
	for _, s := range NextOrderStatuses(from) {
		if s == to {
			return true
		}
	}
	return false
}

// NewStatusTransitionError 非法流转错误，带当前状态与可流转状态，属用户可纠正错误
func NewStatusTransitionError(current string, allowed []string) error {
	if len(allowed) == 0 {
		return fmt.Errorf("订单当前状态 %s 为终态，不允许再流转", current)
	}
	return fmt.Errorf("订单当前状态 %s 不允许该操作，可流转状态: %s", current, strings.Join(allowed, ", "))
}
