package service

import (
	"context"
	"sync"
	"time"

	"github.com/lealta/campaign-engine/internal/domain"
	"github.com/lealta/campaign-engine/internal/provider"
	"github.com/lealta/campaign-engine/internal/queue"
)

// memCampaignStore is an in-memory CampaignRepository with the same CAS
// semantics as the gorm implementation.
type memCampaignStore struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign

	saveErr      error
	saveErrCount int
	getErr       error
	getErrCount  int
}

func newMemCampaignStore(campaigns ...*domain.Campaign) *memCampaignStore {
	s := &memCampaignStore{campaigns: make(map[string]*domain.Campaign)}
	for _, c := range campaigns {
		clone := *c
		s.campaigns[c.ID] = &clone
	}
	return s
}

func (s *memCampaignStore) Create(ctx context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *c
	s.campaigns[c.ID] = &clone
	return nil
}

func (s *memCampaignStore) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErrCount > 0 {
		s.getErrCount--
		return nil, s.getErr
	}
	if s.getErrCount < 0 {
		return nil, s.getErr
	}
	c, ok := s.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *memCampaignStore) ListRecentByTenant(ctx context.Context, tenantID string, limit int) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Campaign, 0)
	for _, c := range s.campaigns {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *memCampaignStore) UpdateStatusFrom(ctx context.Context, id string, from, to domain.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != from {
		return domain.ErrConflict
	}
	c.Status = to
	return nil
}

func (s *memCampaignStore) MarkStarted(ctx context.Context, id string, workerName string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != domain.CampaignDraft {
		return domain.ErrConflict
	}
	c.Status = domain.CampaignProcessing
	c.WorkerName = workerName
	startedAt := at
	c.StartedAt = &startedAt
	return nil
}

func (s *memCampaignStore) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != domain.CampaignProcessing {
		return domain.ErrConflict
	}
	c.Status = domain.CampaignCompleted
	completedAt := at
	c.CompletedAt = &completedAt
	return nil
}

func (s *memCampaignStore) SaveProgress(ctx context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErrCount > 0 {
		s.saveErrCount--
		return s.saveErr
	}
	if s.saveErrCount < 0 {
		return s.saveErr
	}

	stored, ok := s.campaigns[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != c.Version {
		return domain.ErrStaleCampaign
	}

	stored.Cursor = c.Cursor
	stored.Sent = c.Sent
	stored.Failed = c.Failed
	stored.Version++
	c.Version++
	return nil
}

// failSaves makes the next n SaveProgress calls fail with err; n < 0 means
// every call fails.
func (s *memCampaignStore) failSaves(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
	s.saveErrCount = n
}

// failGets mirrors failSaves for GetByID.
func (s *memCampaignStore) failGets(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
	s.getErrCount = n
}

type fakeContactRepo struct {
	windowFn func(ctx context.Context, tenantID string, filters domain.RecipientFilters, offset, limit int) ([]domain.Contact, error)
	countFn  func(ctx context.Context, tenantID string, filters domain.RecipientFilters) (int64, error)
}

func (f *fakeContactRepo) Window(ctx context.Context, tenantID string, filters domain.RecipientFilters, offset, limit int) ([]domain.Contact, error) {
	return f.windowFn(ctx, tenantID, filters, offset, limit)
}

func (f *fakeContactRepo) CountMatching(ctx context.Context, tenantID string, filters domain.RecipientFilters) (int64, error) {
	return f.countFn(ctx, tenantID, filters)
}

type fakeMessageRepo struct {
	mu      sync.Mutex
	records []domain.MessageRecord

	updateFn func(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error
}

func (f *fakeMessageRepo) Create(ctx context.Context, m *domain.MessageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *m)
	return nil
}

func (f *fakeMessageRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.MessageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ProviderMessageID != nil && *f.records[i].ProviderMessageID == providerMessageID {
			clone := f.records[i]
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMessageRepo) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, providerMessageID, status, at)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ProviderMessageID != nil && *f.records[i].ProviderMessageID == providerMessageID {
			f.records[i].Status = status
			f.records[i].UpdatedAt = at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeMessageRepo) CountByCampaign(ctx context.Context, campaignID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for i := range f.records {
		if f.records[i].CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

func (f *fakeMessageRepo) byReason(reason domain.FailureReason) []domain.MessageRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.MessageRecord, 0)
	for i := range f.records {
		if f.records[i].FailureReason != nil && *f.records[i].FailureReason == reason.String() {
			out = append(out, f.records[i])
		}
	}
	return out
}

func (f *fakeMessageRepo) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for i := range f.records {
		if f.records[i].Status == domain.MessageSent {
			count++
		}
	}
	return count
}

type fakeSuppressionRepo struct {
	mu         sync.Mutex
	suppressed map[string]domain.SuppressionEntry
}

func newFakeSuppressionRepo(phones ...string) *fakeSuppressionRepo {
	f := &fakeSuppressionRepo{suppressed: make(map[string]domain.SuppressionEntry)}
	for _, p := range phones {
		f.suppressed[p] = domain.SuppressionEntry{PhoneNumber: p}
	}
	return f
}

func (f *fakeSuppressionRepo) Upsert(ctx context.Context, e *domain.SuppressionEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.suppressed[e.PhoneNumber]; !ok {
		f.suppressed[e.PhoneNumber] = *e
	}
	return nil
}

func (f *fakeSuppressionRepo) IsSuppressed(ctx context.Context, tenantID, phoneNumber string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.suppressed[phoneNumber]
	return ok, nil
}

func (f *fakeSuppressionRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]domain.SuppressionEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SuppressionEntry, 0, len(f.suppressed))
	for _, e := range f.suppressed {
		out = append(out, e)
	}
	return out, nil
}

// memAccountStore is an in-memory AccountRepository with conditional quota
// reservation.
type memAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.SendingAccount
	order    []string
}

func newMemAccountStore(accounts ...*domain.SendingAccount) *memAccountStore {
	s := &memAccountStore{accounts: make(map[string]*domain.SendingAccount)}
	for _, a := range accounts {
		clone := *a
		s.accounts[a.ID] = &clone
		s.order = append(s.order, a.ID)
	}
	return s
}

func (s *memAccountStore) Create(ctx context.Context, a *domain.SendingAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.TenantID != a.TenantID || existing.ID == a.ID {
			continue
		}
		if a.IsPrimary {
			existing.IsPrimary = false
		}
		if a.IsDefault {
			existing.IsDefault = false
		}
	}
	clone := *a
	s.accounts[a.ID] = &clone
	s.order = append(s.order, a.ID)
	return nil
}

func (s *memAccountStore) Update(ctx context.Context, a *domain.SendingAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, existing := range s.accounts {
		if existing.TenantID != a.TenantID || existing.ID == a.ID {
			continue
		}
		if a.IsPrimary {
			existing.IsPrimary = false
		}
		if a.IsDefault {
			existing.IsDefault = false
		}
	}
	clone := *a
	clone.MessagesSentToday = stored.MessagesSentToday
	clone.QuotaDate = stored.QuotaDate
	s.accounts[a.ID] = &clone
	return nil
}

func (s *memAccountStore) Delete(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memAccountStore) GetByID(ctx context.Context, tenantID, id string) (*domain.SendingAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *memAccountStore) ListByTenant(ctx context.Context, tenantID string) ([]domain.SendingAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SendingAccount, 0)
	for _, id := range s.order {
		a, ok := s.accounts[id]
		if ok && a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memAccountStore) ReserveQuota(ctx context.Context, id string, quotaDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrExhausted
	}
	if a.Status != domain.AccountActive || a.QuotaDate != quotaDate || a.MessagesSentToday >= a.MaxDailyMessages {
		return domain.ErrExhausted
	}
	a.MessagesSentToday++
	return nil
}

func (s *memAccountStore) ReleaseQuota(ctx context.Context, id string, quotaDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if ok && a.QuotaDate == quotaDate && a.MessagesSentToday > 0 {
		a.MessagesSentToday--
	}
	return nil
}

func (s *memAccountStore) ResetStaleQuotas(ctx context.Context, tenantID string, quotaDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.TenantID == tenantID && a.QuotaDate != quotaDate {
			a.MessagesSentToday = 0
			a.QuotaDate = quotaDate
		}
	}
	return nil
}

func (s *memAccountStore) sentToday(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return a.MessagesSentToday
	}
	return 0
}

type fakeHeartbeatRepo struct {
	mu      sync.Mutex
	workers map[string]*domain.WorkerHeartbeat
}

func newFakeHeartbeatRepo() *fakeHeartbeatRepo {
	return &fakeHeartbeatRepo{workers: make(map[string]*domain.WorkerHeartbeat)}
}

func (f *fakeHeartbeatRepo) Register(ctx context.Context, w *domain.WorkerHeartbeat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *w
	if existing, ok := f.workers[w.WorkerName]; ok {
		clone.JobsProcessed = existing.JobsProcessed
	}
	f.workers[w.WorkerName] = &clone
	return nil
}

func (f *fakeHeartbeatRepo) Beat(ctx context.Context, workerName string, at time.Time, jobsDelta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workers[workerName]
	if !ok {
		return domain.ErrNotFound
	}
	w.Status = domain.WorkerActive
	w.LastHeartbeat = at
	w.JobsProcessed += jobsDelta
	return nil
}

func (f *fakeHeartbeatRepo) MarkInactive(ctx context.Context, workerName string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.workers[workerName]; ok {
		w.Status = domain.WorkerInactive
		w.LastHeartbeat = at
	}
	return nil
}

func (f *fakeHeartbeatRepo) List(ctx context.Context) ([]domain.WorkerHeartbeat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.WorkerHeartbeat, 0, len(f.workers))
	for _, w := range f.workers {
		out = append(out, *w)
	}
	return out, nil
}

type fakeTemplateRepo struct {
	getFn func(ctx context.Context, tenantID, ref string) (*domain.ApprovedTemplate, error)
}

func (f *fakeTemplateRepo) GetByRef(ctx context.Context, tenantID, ref string) (*domain.ApprovedTemplate, error) {
	return f.getFn(ctx, tenantID, ref)
}

type fakeProvider struct {
	mu    sync.Mutex
	calls []provider.SendRequest

	sendFn func(ctx context.Context, req provider.SendRequest) (*provider.SendResult, error)
}

func (f *fakeProvider) Send(ctx context.Context, req provider.SendRequest) (*provider.SendResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	n := len(f.calls)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, req)
	}
	return &provider.SendResult{StatusCode: 200, MessageID: "msg-" + req.To + "-" + itoa(n)}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

type fakePacer struct {
	waitFn func(ctx context.Context, tenantID string) error
}

func (f *fakePacer) Allow(ctx context.Context, tenantID string) (bool, error) {
	return true, nil
}

func (f *fakePacer) Wait(ctx context.Context, tenantID string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, tenantID)
	}
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.EventHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.EventHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }
