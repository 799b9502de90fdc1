package model

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"telegram-digital-shop/internal/domain"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusUntaken    OrderStatus = "untaken"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusRefund     OrderStatus = "refund"
	OrderStatusCanceled   OrderStatus = "canceled"
)

// Order lifecycle events.
const (
	OrderEventFinalize = "finalize"
	OrderEventFulfill  = "fulfill"
	OrderEventRefund   = "refund"
	OrderEventCancel   = "cancel"
)

var orderEvents = fsm.Events{
	{Name: OrderEventFinalize, Src: []string{string(OrderStatusProcessing)}, Dst: string(OrderStatusUntaken)},
	{Name: OrderEventFulfill, Src: []string{string(OrderStatusUntaken)}, Dst: string(OrderStatusDone)},
	{Name: OrderEventRefund, Src: []string{string(OrderStatusUntaken)}, Dst: string(OrderStatusRefund)},
	{Name: OrderEventCancel, Src: []string{string(OrderStatusProcessing)}, Dst: string(OrderStatusCanceled)},
}

type OrderItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Order is a purchase opened when a customer enters a scenario. Price is the
// snapshot taken at open and is refreshed with the live price on finalize.
type Order struct {
	OrderID   int64
	Client    int64
	Item      OrderItem
	Price     Price
	Paid      bool
	Status    OrderStatus
	Data      map[string]string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

func NewOrder(orderID, client int64, item *Item, region Region) (*Order, error) {
	if orderID <= 0 || client <= 0 || item == nil {
		return nil, domain.ErrInvalidArgument
	}
	return &Order{
		OrderID:   orderID,
		Client:    client,
		Item:      OrderItem{ID: item.ID, Title: item.Title},
		Price:     Price{Amount: item.RealPriceIn(region), Region: region},
		Status:    OrderStatusProcessing,
		CreatedAt: time.Now(),
	}, nil
}

// Transition applies a lifecycle event, rejecting moves the lifecycle does not allow.
func (o *Order) Transition(ctx context.Context, event string) error {
	machine := fsm.NewFSM(string(o.Status), orderEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		return domain.ErrOrderNotOpen
	}
	o.Status = OrderStatus(machine.Current())
	return nil
}

// CanTransition reports whether event is legal from the current status.
func (o *Order) CanTransition(event string) bool {
	return fsm.NewFSM(string(o.Status), orderEvents, fsm.Callbacks{}).Can(event)
}

func (o *Order) IsOpen() bool { return o.Status == OrderStatusProcessing && !o.Paid }
