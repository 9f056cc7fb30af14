package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusSubmitted OrderStatus = "Submitted"
	StatusAuditing  OrderStatus = "Auditing"
	StatusApproved  OrderStatus = "Approved"
	StatusRejected  OrderStatus = "Rejected"
)

// IsValid checks if the status is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusAuditing, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// HoldsAuditor reports whether an order in this status must carry an auditor name.
func (s OrderStatus) HoldsAuditor() bool {
	return s == StatusAuditing || s == StatusApproved
}

// DateLayout is the format of business dates.
const DateLayout = "2006-01-02"

// Timeline event titles.
const (
	EventSubmitted    = "订单已提交"
	EventAuditStarted = "审核员接单"
	EventApproved     = "订单审核通过"
	EventRejected     = "订单已退回"
	EventReleased     = "审核员释放订单"
	EventLeaseExpired = "审核超时自动释放"
)

// TimelineStatus tags a timeline entry for display.
type TimelineStatus string

const (
	TimelineCompleted  TimelineStatus = "completed"
	TimelineProcessing TimelineStatus = "processing"
	TimelinePending    TimelineStatus = "pending"
)

// TimelineEvent is an append-only record of a status transition.
type TimelineEvent struct {
	Time        time.Time      `json:"time"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	User        string         `json:"user,omitempty"`
	Status      TimelineStatus `json:"status"`
}

// OrderItem is a line of an order. Product fields are snapshotted at submission.
type OrderItem struct {
	ProductID        string          `json:"productId"`
	ProductName      string          `json:"productName"`
	Category         string          `json:"category,omitempty"`
	Spec             string          `json:"spec"`
	Unit             string          `json:"unit"`
	Price            decimal.Decimal `json:"price"`
	QuantityOrdered  int             `json:"quantityOrdered"`
	QuantityApproved *int            `json:"quantityApproved,omitempty"`
	Remark           string          `json:"remark,omitempty"`
	ExceedsLimit     bool            `json:"exceedsLimit,omitempty"`
}

// NewOrderItem snapshots a product into a line item after checking the ordering bounds.
func NewOrderItem(p *Product, quantity int) (OrderItem, error) {
	if p == nil {
		return OrderItem{}, ErrProductNotFound
	}
	if !p.IsActive {
		return OrderItem{}, NewValidationError("productId", fmt.Sprintf("product %s is not available", p.ID))
	}
	if quantity <= 0 {
		return OrderItem{}, NewValidationError("quantityOrdered", fmt.Sprintf("quantity for %s must be positive", p.ID))
	}
	if !p.AllowsQuantity(quantity) {
		return OrderItem{}, NewValidationError("quantityOrdered",
			fmt.Sprintf("quantity %d for %s must be between %d and %d", quantity, p.ID, p.MinOrder, p.MaxOrder))
	}
	return OrderItem{
		ProductID:       p.ID,
		ProductName:     p.Name,
		Category:        p.Category,
		Spec:            p.Spec,
		Unit:            p.Unit,
		Price:           p.Price,
		QuantityOrdered: quantity,
	}, nil
}

// EffectiveQuantity is the approved quantity when set, else the ordered one.
func (i OrderItem) EffectiveQuantity() int {
	if i.QuantityApproved != nil {
		return *i.QuantityApproved
	}
	return i.QuantityOrdered
}

// Amount is the effective quantity priced at the snapshotted unit price.
func (i OrderItem) Amount() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.EffectiveQuantity())))
}

// Order is a store's order for one business day.
type Order struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"storeId"`
	StoreName     string          `json:"storeName"`
	StoreRegion   string          `json:"storeRegion"`
	BusinessDate  string          `json:"businessDate"`
	Status        OrderStatus     `json:"status"`
	OrderDate     *time.Time      `json:"orderDate,omitempty"`
	Items         []OrderItem     `json:"items"`
	ItemCount     int             `json:"itemCount"`
	TotalQuantity int             `json:"totalQuantity"`
	AuditorName   string          `json:"auditorName,omitempty"`
	LockExpiresAt *time.Time      `json:"lockExpiresAt,omitempty"`
	Timeline      []TimelineEvent `json:"timeline"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// FormatOrderID builds the human-readable id: O + yyyymmdd + daily sequence.
func FormatOrderID(businessDate string, seq int) string {
	return fmt.Sprintf("O%s%02d", strings.ReplaceAll(businessDate, "-", ""), seq)
}

// NewOrder opens a Pending order for the store on the given business date.
func NewOrder(id string, store *Store, businessDate string, now time.Time) *Order {
	return &Order{
		ID:           id,
		StoreID:      store.ID,
		StoreName:    store.Name,
		StoreRegion:  store.Region,
		BusinessDate: businessDate,
		Status:       StatusPending,
		Items:        []OrderItem{},
		Timeline:     []TimelineEvent{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Touch advances the optimistic-concurrency version.
func (o *Order) Touch(now time.Time) {
	if o == nil {
		return
	}
	o.Version++
	o.UpdatedAt = now
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
}

// Clone returns a deep copy so a failed mutation never leaks into a stored order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		if item.QuantityApproved != nil {
			q := *item.QuantityApproved
			item.QuantityApproved = &q
		}
		c.Items[i] = item
	}
	c.Timeline = append([]TimelineEvent(nil), o.Timeline...)
	if o.OrderDate != nil {
		t := *o.OrderDate
		c.OrderDate = &t
	}
	if o.LockExpiresAt != nil {
		t := *o.LockExpiresAt
		c.LockExpiresAt = &t
	}
	return &c
}

// Recalculate derives ItemCount and TotalQuantity from the items.
func (o *Order) Recalculate() {
	o.ItemCount = len(o.Items)
	total := 0
	for _, item := range o.Items {
		total += item.EffectiveQuantity()
	}
	o.TotalQuantity = total
}

// TotalAmount sums the effective amount of all items.
func (o *Order) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// Item returns the line for productID.
func (o *Order) Item(productID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// LeaseExpired reports whether an audit lease has passed its deadline.
func (o *Order) LeaseExpired(now time.Time) bool {
	return o.Status == StatusAuditing && o.LockExpiresAt != nil && !o.LockExpiresAt.After(now)
}

// LockHolder returns the auditor holding a live lease.
func (o *Order) LockHolder(now time.Time) (string, bool) {
	if o.Status != StatusAuditing || o.LeaseExpired(now) {
		return "", false
	}
	return o.AuditorName, true
}

// Submit moves a Pending order to Submitted with the given items.
func (o *Order) Submit(items []OrderItem, submittedBy string, now time.Time) error {
	if o.Status != StatusPending {
		return NewInvalidTransition(o.Status, "submit")
	}
	if len(items) == 0 {
		return NewValidationError("items", "order must contain at least one item")
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.QuantityOrdered <= 0 {
			return NewValidationError("quantityOrdered", fmt.Sprintf("quantity for %s must be positive", item.ProductID))
		}
		if _, dup := seen[item.ProductID]; dup {
			return NewValidationError("items", fmt.Sprintf("product %s appears more than once", item.ProductID))
		}
		seen[item.ProductID] = struct{}{}
	}

	o.Items = append([]OrderItem(nil), items...)
	for i := range o.Items {
		o.Items[i].QuantityApproved = nil
		o.Items[i].Remark = ""
		o.Items[i].ExceedsLimit = false
	}
	o.Status = StatusSubmitted
	submitted := now
	o.OrderDate = &submitted
	o.Recalculate()
	o.appendEvent(now, EventSubmitted, "", submittedBy)
	return nil
}

// AcquireAudit grants the audit lease to auditor. It returns false when the
// auditor already held a live lease, in which case only the deadline is renewed.
func (o *Order) AcquireAudit(auditor string, now time.Time, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(auditor) == "" {
		return false, NewValidationError("auditorName", "auditor name is required")
	}

	var takeoverFrom string
	switch o.Status {
	case StatusSubmitted:
	case StatusAuditing:
		if o.AuditorName == auditor {
			o.renewLease(now, ttl)
			return false, nil
		}
		if !o.LeaseExpired(now) {
			return false, NewLockConflict(o.AuditorName)
		}
		takeoverFrom = o.AuditorName
		o.clearApprovals()
	default:
		return false, NewInvalidTransition(o.Status, "acquire audit lock")
	}

	o.Status = StatusAuditing
	o.AuditorName = auditor
	o.renewLease(now, ttl)
	desc := ""
	if takeoverFrom != "" {
		desc = fmt.Sprintf("接管 %s 超时未完成的审核", takeoverFrom)
	}
	o.appendEvent(now, EventAuditStarted, desc, auditor)
	return true, nil
}

// ItemAdjustment describes an auditor's change to one line.
type ItemAdjustment struct {
	ProductID    string
	Quantity     int
	Remark       *string
	ExceedsLimit bool
}

// AdjustItem records an approved quantity for one line. No timeline event is
// appended; the change is summarised when the order is approved.
func (o *Order) AdjustItem(auditor string, adj ItemAdjustment, now time.Time, ttl time.Duration) error {
	if err := o.CheckAdjustable(auditor, adj.ProductID); err != nil {
		return err
	}
	if adj.Quantity < 0 {
		return NewValidationError("quantityApproved", "approved quantity cannot be negative")
	}
	item, _ := o.Item(adj.ProductID)
	q := adj.Quantity
	item.QuantityApproved = &q
	item.ExceedsLimit = adj.ExceedsLimit
	if adj.Remark != nil {
		item.Remark = strings.TrimSpace(*adj.Remark)
	}
	o.Recalculate()
	o.renewLease(now, ttl)
	return nil
}

// CheckAdjustable reports whether auditor may change the line for productID.
func (o *Order) CheckAdjustable(auditor, productID string) error {
	if err := o.requireHolder(auditor, "adjust item quantity"); err != nil {
		return err
	}
	if _, ok := o.Item(productID); !ok {
		return WrapError(ErrCodeNotFound, ErrItemNotFound.Message, fmt.Errorf("product %s", productID))
	}
	return nil
}

// Approve finalises every line and closes the order successfully.
func (o *Order) Approve(auditor string, now time.Time) error {
	if err := o.requireHolder(auditor, "approve"); err != nil {
		return err
	}
	var changes []string
	for i := range o.Items {
		item := &o.Items[i]
		if item.QuantityApproved == nil {
			q := item.QuantityOrdered
			item.QuantityApproved = &q
			continue
		}
		if *item.QuantityApproved != item.QuantityOrdered {
			changes = append(changes, fmt.Sprintf("%s %d→%d", item.ProductName, item.QuantityOrdered, *item.QuantityApproved))
		}
	}
	o.Recalculate()
	o.Status = StatusApproved
	o.LockExpiresAt = nil

	desc := "全部商品按申请数量通过"
	if len(changes) > 0 {
		desc = "调整了部分商品数量：" + strings.Join(changes, "；")
	}
	o.appendEvent(now, EventApproved, desc, auditor)
	return nil
}

// Reject closes the order unsuccessfully; the store must submit a new order.
func (o *Order) Reject(auditor, reason string, now time.Time) error {
	if err := o.requireHolder(auditor, "reject"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", "a rejection reason is required")
	}
	o.Status = StatusRejected
	o.AuditorName = ""
	o.LockExpiresAt = nil
	o.appendEvent(now, EventRejected, reason, auditor)
	return nil
}

// Release hands a locked order back to the Submitted queue, discarding draft approvals.
func (o *Order) Release(auditor string, now time.Time) error {
	if err := o.requireHolder(auditor, "release audit lock"); err != nil {
		return err
	}
	o.revertToSubmitted()
	o.appendEvent(now, EventReleased, "", auditor)
	return nil
}

// ExpireLease reverts an order whose audit lease has elapsed.
func (o *Order) ExpireLease(now time.Time) error {
	if !o.LeaseExpired(now) {
		return NewInvalidTransition(o.Status, "expire audit lease")
	}
	holder := o.AuditorName
	o.revertToSubmitted()
	o.appendEvent(now, EventLeaseExpired, fmt.Sprintf("%s 的审核锁已过期", holder), holder)
	return nil
}

// CheckInvariants verifies the aggregate's structural rules.
func (o *Order) CheckInvariants() error {
	if !o.Status.IsValid() {
		return fmt.Errorf("unknown status %q", o.Status)
	}
	if o.Status != StatusPending && len(o.Items) == 0 {
		return fmt.Errorf("order %s in status %s has no items", o.ID, o.Status)
	}
	if o.Status.HoldsAuditor() != (o.AuditorName != "") {
		return fmt.Errorf("order %s in status %s has auditor %q", o.ID, o.Status, o.AuditorName)
	}
	total := 0
	for _, item := range o.Items {
		if item.QuantityApproved != nil && *item.QuantityApproved < 0 {
			return fmt.Errorf("order %s item %s has negative approved quantity", o.ID, item.ProductID)
		}
		total += item.EffectiveQuantity()
	}
	if o.ItemCount != len(o.Items) || o.TotalQuantity != total {
		return fmt.Errorf("order %s totals out of date: itemCount=%d totalQuantity=%d", o.ID, o.ItemCount, o.TotalQuantity)
	}
	return nil
}

func (o *Order) requireHolder(auditor, action string) error {
	if o.Status != StatusAuditing {
		return NewInvalidTransition(o.Status, action)
	}
	if o.AuditorName != auditor {
		return NewForbidden(auditor, o.AuditorName)
	}
	return nil
}

func (o *Order) revertToSubmitted() {
	o.Status = StatusSubmitted
	o.AuditorName = ""
	o.LockExpiresAt = nil
	o.clearApprovals()
}

func (o *Order) clearApprovals() {
	for i := range o.Items {
		o.Items[i].QuantityApproved = nil
		o.Items[i].Remark = ""
		o.Items[i].ExceedsLimit = false
	}
	o.Recalculate()
}

func (o *Order) renewLease(now time.Time, ttl time.Duration) {
	if ttl <= 0 {
		o.LockExpiresAt = nil
		return
	}
	deadline := now.Add(ttl)
	o.LockExpiresAt = &deadline
}

func (o *Order) appendEvent(now time.Time, title, description, user string) {
	o.Timeline = append(o.Timeline, TimelineEvent{
		Time:        now,
		Title:       title,
		Description: description,
		User:        user,
		Status:      TimelineCompleted,
	})
}

// LastEvent returns the most recent timeline entry.
func (o *Order) LastEvent() (TimelineEvent, bool) {
	if len(o.Timeline) == 0 {
		return TimelineEvent{}, false
	}
	return o.Timeline[len(o.Timeline)-1], true
}
