package bus

// 结算事件的路由键与载荷定义。

const (
	// TopicCheckoutCompleted 清单结算完成事件的路由键
	TopicCheckoutCompleted = "list.checkout.completed"

	// PatternCheckoutAll 匹配全部结算事件
	PatternCheckoutAll = "list.checkout.#"

	// PatternListAll 匹配全部清单领域事件
	PatternListAll = "list.#"
)

// CheckoutSummary 结算时刻的清单汇总
type CheckoutSummary struct {
	// TotalItems 清单条目总数
	TotalItems int `json:"totalItems"`

	// PurchasedItems 已购买条目数
	PurchasedItems int `json:"purchasedItems"`

	// EstimatedTotal 预估总价
	EstimatedTotal float64 `json:"estimatedTotal"`
}

// CheckoutEvent 清单结算完成事件
//
// 由 list-service 在结算端点发布，通知与分析 worker 消费。
type CheckoutEvent struct {
	// ListID 结算的清单 ID
	ListID string `json:"listId"`

	// UserEmail 发起结算的用户邮箱
	UserEmail string `json:"userEmail"`

	// Summary 结算时刻的清单汇总
	Summary CheckoutSummary `json:"summary"`
}
