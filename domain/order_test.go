package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/orderdesk/domain"
)

var t0 = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func rice() *domain.Product {
	return &domain.Product{
		ID: "P001", Name: "东北大米", Category: "grain", Spec: "10kg", Unit: "袋",
		Price: decimal.RequireFromString("45.5"), IsActive: true, MinOrder: 1, MaxOrder: 50, Stock: 200,
	}
}

func oil() *domain.Product {
	return &domain.Product{
		ID: "P002", Name: "花生油", Category: "oil", Spec: "5L", Unit: "桶",
		Price: decimal.RequireFromString("89.9"), IsActive: true, MinOrder: 1, MaxOrder: 20, Stock: 100,
	}
}

func store() *domain.Store {
	return &domain.Store{ID: "S001", Name: "朝阳店", Region: "华北", ManagerName: "王经理", Status: domain.StoreStatusActive}
}

func items(t *testing.T) []domain.OrderItem {
	t.Helper()
	a, err := domain.NewOrderItem(rice(), 20)
	require.NoError(t, err)
	b, err := domain.NewOrderItem(oil(), 10)
	require.NoError(t, err)
	return []domain.OrderItem{a, b}
}

func submitted(t *testing.T) *domain.Order {
	t.Helper()
	o := domain.NewOrder("O2025011501", store(), "2025-01-15", t0)
	require.NoError(t, o.Submit(items(t), "王经理", t0))
	return o
}

func auditing(t *testing.T, auditor string) *domain.Order {
	t.Helper()
	o := submitted(t)
	entered, err := o.AcquireAudit(auditor, t0.Add(time.Minute), 30*time.Minute)
	require.NoError(t, err)
	require.True(t, entered)
	return o
}

func TestFormatOrderID(t *testing.T) {
	assert.Equal(t, "O2025011501", domain.FormatOrderID("2025-01-15", 1))
	assert.Equal(t, "O2025011512", domain.FormatOrderID("2025-01-15", 12))
}

func TestNewOrderItemBounds(t *testing.T) {
	p := rice()

	_, err := domain.NewOrderItem(p, 0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	_, err = domain.NewOrderItem(p, 51)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	p.IsActive = false
	_, err = domain.NewOrderItem(p, 5)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	item, err := domain.NewOrderItem(rice(), 50)
	require.NoError(t, err)
	assert.Equal(t, "东北大米", item.ProductName)
	assert.Equal(t, "grain", item.Category)
	assert.Nil(t, item.QuantityApproved)
}

func TestSubmit(t *testing.T) {
	o := submitted(t)

	assert.Equal(t, domain.StatusSubmitted, o.Status)
	assert.Equal(t, 2, o.ItemCount)
	assert.Equal(t, 30, o.TotalQuantity)
	require.NotNil(t, o.OrderDate)
	require.Len(t, o.Timeline, 1)
	assert.Equal(t, domain.EventSubmitted, o.Timeline[0].Title)
	assert.Equal(t, "王经理", o.Timeline[0].User)
	assert.NoError(t, o.CheckInvariants())
}

func TestSubmitRejectsEmptyAndDuplicates(t *testing.T) {
	o := domain.NewOrder("O2025011501", store(), "2025-01-15", t0)

	err := o.Submit(nil, "王经理", t0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Empty(t, o.Timeline)

	lines := items(t)
	err = o.Submit([]domain.OrderItem{lines[0], lines[0]}, "王经理", t0)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestSubmitTwiceIsInvalidTransition(t *testing.T) {
	o := submitted(t)
	err := o.Submit(items(t), "王经理", t0)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition))
	assert.Equal(t, "Submitted", domain.MetaOf(err)["current"])
}

func TestAcquireAudit(t *testing.T) {
	o := auditing(t, "李审核")

	assert.Equal(t, domain.StatusAuditing, o.Status)
	assert.Equal(t, "李审核", o.AuditorName)
	require.NotNil(t, o.LockExpiresAt)
	assert.Equal(t, t0.Add(31*time.Minute), *o.LockExpiresAt)
	require.Len(t, o.Timeline, 2)
	assert.Equal(t, domain.EventAuditStarted, o.Timeline[1].Title)

	holder, ok := o.LockHolder(t0.Add(2 * time.Minute))
	assert.True(t, ok)
	assert.Equal(t, "李审核", holder)
}

func TestAcquireAuditReentrantRenewsWithoutEvent(t *testing.T) {
	o := auditing(t, "李审核")

	entered, err := o.AcquireAudit("李审核", t0.Add(10*time.Minute), 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, entered)
	assert.Len(t, o.Timeline, 2)
	assert.Equal(t, t0.Add(40*time.Minute), *o.LockExpiresAt)
}

func TestAcquireAuditConflict(t *testing.T) {
	o := auditing(t, "李审核")

	_, err := o.AcquireAudit("张审核", t0.Add(5*time.Minute), 30*time.Minute)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeLockConflict))
	assert.Equal(t, "李审核", domain.MetaOf(err)["holder"])
	assert.Equal(t, "李审核", o.AuditorName)
}

func TestAcquireAuditTakeoverAfterExpiry(t *testing.T) {
	o := auditing(t, "李审核")
	q := 5
	require.NoError(t, o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: q}, t0.Add(2*time.Minute), 30*time.Minute))

	later := t0.Add(2 * time.Hour)
	assert.True(t, o.LeaseExpired(later))
	_, held := o.LockHolder(later)
	assert.False(t, held)

	entered, err := o.AcquireAudit("张审核", later, 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, entered)
	assert.Equal(t, "张审核", o.AuditorName)
	assert.Contains(t, lastEvent(o).Description, "李审核")

	item, _ := o.Item("P001")
	assert.Nil(t, item.QuantityApproved, "draft approvals of the previous auditor are discarded")
	assert.Equal(t, 30, o.TotalQuantity)
}

func TestAcquireAuditRequiresName(t *testing.T) {
	o := submitted(t)
	_, err := o.AcquireAudit("  ", t0, time.Minute)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	assert.Equal(t, domain.StatusSubmitted, o.Status)
}

func TestAcquireAuditFromPendingOrTerminal(t *testing.T) {
	pending := domain.NewOrder("O2025011501", store(), "2025-01-15", t0)
	_, err := pending.AcquireAudit("李审核", t0, time.Minute)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition))

	approved := auditing(t, "李审核")
	require.NoError(t, approved.Approve("李审核", t0.Add(time.Hour)))
	_, err = approved.AcquireAudit("李审核", t0.Add(time.Hour), time.Minute)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition))
}

func TestAdjustAndApprove(t *testing.T) {
	o := auditing(t, "李审核")
	remark := "库存不足"

	require.NoError(t, o.AdjustItem("李审核", domain.ItemAdjustment{
		ProductID: "P002", Quantity: 8, Remark: &remark,
	}, t0.Add(3*time.Minute), 30*time.Minute))
	assert.Equal(t, 28, o.TotalQuantity)
	assert.Len(t, o.Timeline, 2, "adjustments do not add timeline entries")

	require.NoError(t, o.Approve("李审核", t0.Add(4*time.Minute)))

	assert.Equal(t, domain.StatusApproved, o.Status)
	assert.Equal(t, "李审核", o.AuditorName)
	assert.Nil(t, o.LockExpiresAt)
	riceLine, _ := o.Item("P001")
	oilLine, _ := o.Item("P002")
	require.NotNil(t, riceLine.QuantityApproved)
	assert.Equal(t, 20, *riceLine.QuantityApproved)
	assert.Equal(t, 8, *oilLine.QuantityApproved)
	assert.Equal(t, "库存不足", oilLine.Remark)
	assert.Equal(t, 28, o.TotalQuantity)

	last := lastEvent(o)
	assert.Equal(t, domain.EventApproved, last.Title)
	assert.Contains(t, last.Description, "花生油 10→8")
	assert.Equal(t, "李审核", last.User)

	want := decimal.RequireFromString("45.5").Mul(decimal.NewFromInt(20)).
		Add(decimal.RequireFromString("89.9").Mul(decimal.NewFromInt(8)))
	assert.True(t, want.Equal(o.TotalAmount()))
	assert.NoError(t, o.CheckInvariants())
}

func TestApproveWithoutAdjustments(t *testing.T) {
	o := auditing(t, "李审核")
	require.NoError(t, o.Approve("李审核", t0.Add(time.Minute)))
	assert.Equal(t, "全部商品按申请数量通过", lastEvent(o).Description)
	assert.Equal(t, 30, o.TotalQuantity)
}

func TestApproveTwice(t *testing.T) {
	o := auditing(t, "李审核")
	require.NoError(t, o.Approve("李审核", t0.Add(time.Minute)))
	events := len(o.Timeline)

	err := o.Approve("李审核", t0.Add(2*time.Minute))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition))
	assert.Len(t, o.Timeline, events)
}

func TestAdjustRules(t *testing.T) {
	o := auditing(t, "李审核")
	later := t0.Add(2 * time.Minute)

	err := o.AdjustItem("张审核", domain.ItemAdjustment{ProductID: "P001", Quantity: 1}, later, time.Hour)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	err = o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: -1}, later, time.Hour)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	err = o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P999", Quantity: 1}, later, time.Hour)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	require.NoError(t, o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: 0}, later, time.Hour))
	assert.Equal(t, 10, o.TotalQuantity)

	require.NoError(t, o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: 80, ExceedsLimit: true}, later, time.Hour))
	line, _ := o.Item("P001")
	assert.True(t, line.ExceedsLimit)
	assert.Equal(t, 90, o.TotalQuantity)
}

func TestAdjustOnSubmittedOrder(t *testing.T) {
	o := submitted(t)
	err := o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: 1}, t0, time.Hour)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition))
}

func TestReject(t *testing.T) {
	o := auditing(t, "李审核")

	err := o.Reject("李审核", "  ", t0.Add(time.Minute))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	assert.Equal(t, domain.StatusAuditing, o.Status)

	err = o.Reject("张审核", "数量过多", t0.Add(time.Minute))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeForbidden))

	require.NoError(t, o.Reject("李审核", "数量过多", t0.Add(time.Minute)))
	assert.Equal(t, domain.StatusRejected, o.Status)
	assert.Empty(t, o.AuditorName)
	last := lastEvent(o)
	assert.Equal(t, domain.EventRejected, last.Title)
	assert.Equal(t, "数量过多", last.Description)
	assert.Equal(t, "李审核", last.User)
	assert.NoError(t, o.CheckInvariants())

	_, err = o.AcquireAudit("李审核", t0.Add(time.Hour), time.Minute)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition))
}

func TestReleaseAndExpire(t *testing.T) {
	o := auditing(t, "李审核")
	require.NoError(t, o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: 3}, t0.Add(2*time.Minute), 30*time.Minute))

	require.NoError(t, o.Release("李审核", t0.Add(3*time.Minute)))
	assert.Equal(t, domain.StatusSubmitted, o.Status)
	assert.Empty(t, o.AuditorName)
	assert.Nil(t, o.LockExpiresAt)
	assert.Equal(t, 30, o.TotalQuantity)
	assert.Equal(t, domain.EventReleased, lastEvent(o).Title)

	o = auditing(t, "李审核")
	err := o.ExpireLease(t0.Add(5 * time.Minute))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidTransition), "lease still live")

	require.NoError(t, o.ExpireLease(t0.Add(time.Hour)))
	assert.Equal(t, domain.StatusSubmitted, o.Status)
	assert.Equal(t, domain.EventLeaseExpired, lastEvent(o).Title)
	assert.NoError(t, o.CheckInvariants())
}

func TestCloneIsDeep(t *testing.T) {
	o := auditing(t, "李审核")
	require.NoError(t, o.AdjustItem("李审核", domain.ItemAdjustment{ProductID: "P001", Quantity: 3}, t0.Add(2*time.Minute), 30*time.Minute))

	c := o.Clone()
	q := 99
	c.Items[0].QuantityApproved = &q
	*c.LockExpiresAt = t0
	c.Timeline[0].Title = "changed"

	assert.Equal(t, 3, *o.Items[0].QuantityApproved)
	assert.NotEqual(t, t0, *o.LockExpiresAt)
	assert.Equal(t, domain.EventSubmitted, o.Timeline[0].Title)
}

func TestTouchAdvancesVersion(t *testing.T) {
	o := domain.NewOrder("O2025011501", store(), "2025-01-15", t0)
	o.Touch(t0.Add(time.Second))
	o.Touch(t0.Add(2 * time.Second))
	assert.Equal(t, 2, o.Version)
	assert.Equal(t, t0.Add(2*time.Second), o.UpdatedAt)
	assert.Equal(t, t0, o.CreatedAt)
}

func lastEvent(o *domain.Order) domain.TimelineEvent {
	e, _ := o.LastEvent()
	return e
}
