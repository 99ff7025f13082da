package service

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/lock"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/metrics"
	paymentgateway "github.com/alimikegami/marketplace/payment-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// memoryStore keeps repository state in maps. trxMu serializes HandleTrx
// blocks the way row locks would; mu guards the maps themselves.
type memoryStore struct {
	trxMu sync.Mutex
	mu    sync.Mutex

	transactions map[int64]domain.Transaction
	items        map[int64]domain.TransactionItem
	products     map[int64]domain.Product
	webhookLogs  []domain.WebhookLog
	balances     map[int64]decimal.Decimal
	ledger       []domain.StoreBalanceHistory
	nextID       int64

	webhookLogErr   error
	updateStatusErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		transactions: make(map[int64]domain.Transaction),
		items:        make(map[int64]domain.TransactionItem),
		products:     make(map[int64]domain.Product),
		balances:     make(map[int64]decimal.Decimal),
	}
}

func (s *memoryStore) seed(trx domain.Transaction, items ...domain.TransactionItem) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	trx.ID = s.nextID
	if trx.OrderID == "" {
		trx.OrderID = trx.TransactionCode
	}
	if trx.PaymentStatus == "" {
		trx.PaymentStatus = domain.PaymentStatusPending
	}
	trx.Items = nil
	s.transactions[trx.ID] = trx

	for _, item := range items {
		s.nextID++
		item.ID = s.nextID
		item.TransactionID = trx.ID
		if item.ItemStatus == "" {
			item.ItemStatus = domain.ItemStatusPending
		}
		s.items[item.ID] = item
	}

	return s.loadLocked(trx.ID)
}

func (s *memoryStore) loadLocked(id int64) domain.Transaction {
	trx, ok := s.transactions[id]
	if !ok {
		return domain.Transaction{}
	}
	trx.Items = s.itemsLocked(id)
	return trx
}

func (s *memoryStore) itemsLocked(transactionID int64) []domain.TransactionItem {
	var out []domain.TransactionItem
	for _, item := range s.items {
		if item.TransactionID == transactionID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) byCode(code string) domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, trx := range s.transactions {
		if trx.TransactionCode == code || trx.OrderID == code {
			return s.loadLocked(id)
		}
	}
	return domain.Transaction{}
}

func (s *memoryStore) item(id int64) domain.TransactionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

func (s *memoryStore) balance(storeID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[storeID]
}

func (s *memoryStore) ledgerEntries() []domain.StoreBalanceHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StoreBalanceHistory(nil), s.ledger...)
}

func (s *memoryStore) logs() []domain.WebhookLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WebhookLog(nil), s.webhookLogs...)
}

type memoryRepository struct {
	store *memoryStore
	inTrx bool
}

func (r *memoryRepository) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo repository.TransactionRepository) error) error {
	if r.inTrx {
		return fn(ctx, r)
	}

	r.store.trxMu.Lock()
	defer r.store.trxMu.Unlock()

	return fn(ctx, &memoryRepository{store: r.store, inTrx: true})
}

func (r *memoryRepository) AddTransaction(ctx context.Context, data domain.Transaction) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextID++
	data.ID = r.store.nextID
	data.Items = nil
	r.store.transactions[data.ID] = data
	return data.ID, nil
}

func (r *memoryRepository) AddTransactionItems(ctx context.Context, data []domain.TransactionItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range data {
		r.store.nextID++
		item.ID = r.store.nextID
		r.store.items[item.ID] = item
	}
	return nil
}

func (r *memoryRepository) GetTransactionByCode(ctx context.Context, code string) (domain.Transaction, error) {
	return r.store.byCode(code), nil
}

func (r *memoryRepository) GetTransactionByCodeForUpdate(ctx context.Context, code string) (domain.Transaction, error) {
	return r.store.byCode(code), nil
}

func (r *memoryRepository) GetTransactionByID(ctx context.Context, id int64) (domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.loadLocked(id), nil
}

func (r *memoryRepository) GetTransactionItems(ctx context.Context, transactionID int64) ([]domain.TransactionItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.itemsLocked(transactionID), nil
}

func (r *memoryRepository) GetPendingTransactions(ctx context.Context, createdSince int64, limit int) ([]domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []domain.Transaction
	for id, trx := range r.store.transactions {
		if trx.PaymentStatus == domain.PaymentStatusPending && trx.CreatedAt >= createdSince {
			out = append(out, r.store.loadLocked(id))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) UpdatePaymentStatus(ctx context.Context, data domain.Transaction, previous domain.PaymentStatus) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.updateStatusErr != nil {
		return false, r.store.updateStatusErr
	}

	trx, ok := r.store.transactions[data.ID]
	if !ok || trx.PaymentStatus != previous {
		return false, nil
	}

	trx.PaymentStatus = data.PaymentStatus
	if data.PaymentMethod != nil {
		trx.PaymentMethod = data.PaymentMethod
	}
	if data.GatewayTransactionID != nil {
		trx.GatewayTransactionID = data.GatewayTransactionID
	}
	if trx.PaidAt == nil {
		trx.PaidAt = data.PaidAt
	}
	trx.NeedsReview = trx.NeedsReview || data.NeedsReview
	trx.UpdatedAt = time.Now().Unix()
	r.store.transactions[data.ID] = trx
	return true, nil
}

func (r *memoryRepository) setOnce(id int64, apply func(trx *domain.Transaction) bool) bool {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	trx, ok := r.store.transactions[id]
	if !ok || !apply(&trx) {
		return false
	}
	r.store.transactions[id] = trx
	return true
}

func (r *memoryRepository) SetInvoiceURL(ctx context.Context, id int64, invoiceURL string) (bool, error) {
	return r.setOnce(id, func(trx *domain.Transaction) bool {
		if trx.InvoiceURL != nil {
			return false
		}
		trx.InvoiceURL = &invoiceURL
		return true
	}), nil
}

func (r *memoryRepository) SetQRCode(ctx context.Context, id int64, qrCode string) (bool, error) {
	return r.setOnce(id, func(trx *domain.Transaction) bool {
		if trx.QRCode != nil {
			return false
		}
		trx.QRCode = &qrCode
		return true
	}), nil
}

func (r *memoryRepository) ClaimPaidNotification(ctx context.Context, id int64, notifiedAt int64) (bool, error) {
	return r.setOnce(id, func(trx *domain.Transaction) bool {
		if trx.PaidNotifiedAt != nil {
			return false
		}
		trx.PaidNotifiedAt = &notifiedAt
		return true
	}), nil
}

func (r *memoryRepository) MarkScanned(ctx context.Context, id int64, storeID int64, scannedAt int64) (bool, error) {
	return r.setOnce(id, func(trx *domain.Transaction) bool {
		if trx.IsScan {
			return false
		}
		trx.IsScan = true
		trx.ScannedAt = &scannedAt
		trx.ScannedByStoreID = &storeID
		return true
	}), nil
}

func (r *memoryRepository) AddWebhookLog(ctx context.Context, data domain.WebhookLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.webhookLogErr != nil {
		return r.store.webhookLogErr
	}
	r.store.webhookLogs = append(r.store.webhookLogs, data)
	return nil
}

func (r *memoryRepository) HasWebhookLog(ctx context.Context, orderIDs []string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, entry := range r.store.webhookLogs {
		for _, id := range orderIDs {
			if entry.OrderID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *memoryRepository) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []domain.Product
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepository) GetTransactionItemByIDForUpdate(ctx context.Context, id int64) (domain.TransactionItem, error) {
	return r.store.item(id), nil
}

func (r *memoryRepository) updateItem(id int64, apply func(item *domain.TransactionItem) bool) bool {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.items[id]
	if !ok || !apply(&item) {
		return false
	}
	r.store.items[id] = item
	return true
}

func (r *memoryRepository) UpdateItemStatus(ctx context.Context, id int64, from, to domain.ItemStatus) (bool, error) {
	return r.updateItem(id, func(item *domain.TransactionItem) bool {
		if item.ItemStatus != from {
			return false
		}
		item.ItemStatus = to
		return true
	}), nil
}

func (r *memoryRepository) MarkItemCredited(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	return r.updateItem(id, func(item *domain.TransactionItem) bool {
		if item.BalanceCredited {
			return false
		}
		item.BalanceCredited = true
		item.CreditedAmount = amount
		return true
	}), nil
}

func (r *memoryRepository) MarkItemDebited(ctx context.Context, id int64) (bool, error) {
	return r.updateItem(id, func(item *domain.TransactionItem) bool {
		if !item.BalanceCredited {
			return false
		}
		item.BalanceCredited = false
		return true
	}), nil
}

func (r *memoryRepository) AdjustStoreBalance(ctx context.Context, storeID int64, delta decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.balances[storeID] = r.store.balances[storeID].Add(delta)
	return nil
}

func (r *memoryRepository) AddStoreBalanceHistory(ctx context.Context, data domain.StoreBalanceHistory) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledger = append(r.store.ledger, data)
	return nil
}

type fakeGateway struct {
	mu sync.Mutex

	charge    paymentgateway.ChargeResult
	chargeErr error
	charges   []paymentgateway.ChargeRequest

	statuses    map[string]paymentgateway.StatusResult
	statusErrs  map[string]error
	statusCalls int

	rejectSignatures bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		charge: paymentgateway.ChargeResult{
			Token:       "snap-token",
			RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token",
			ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		},
		statuses:   make(map[string]paymentgateway.StatusResult),
		statusErrs: make(map[string]error),
	}
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req paymentgateway.ChargeRequest) (paymentgateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.charges = append(g.charges, req)
	if g.chargeErr != nil {
		return paymentgateway.ChargeResult{}, g.chargeErr
	}
	return g.charge, nil
}

func (g *fakeGateway) QueryStatus(ctx context.Context, orderID string) (paymentgateway.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statusCalls++
	if err, ok := g.statusErrs[orderID]; ok {
		return paymentgateway.StatusResult{}, err
	}
	status, ok := g.statuses[orderID]
	if !ok {
		return paymentgateway.StatusResult{}, errs.ErrNotFoundUpstream
	}
	return status, nil
}

func (g *fakeGateway) VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool {
	return !g.rejectSignatures
}

type fakeMessenger struct {
	mu        sync.Mutex
	texts     []string
	documents []string
	err       error
}

func (m *fakeMessenger) Send(ctx context.Context, phone, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, phone+": "+text)
	return m.err
}

func (m *fakeMessenger) SendDocument(ctx context.Context, phone, filePath, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, filePath)
	return m.err
}

func (m *fakeMessenger) counts() (texts int, documents int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts), len(m.documents)
}

// paidNotifications counts the paid confirmations, ignoring the pending order message.
func (m *fakeMessenger) paidNotifications() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.documents)
	for _, text := range m.texts {
		if strings.Contains(text, "telah kami terima") {
			count++
		}
	}
	return count
}

type fakeRenderer struct {
	mu    sync.Mutex
	dir   string
	calls int
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, snapshot domain.InvoiceSnapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return filepath.Join(r.dir, "invoice-"+snapshot.TransactionCode+".pdf"), nil
}

func (r *fakeRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeQRRenderer struct {
	mu       sync.Mutex
	payloads []string
	err      error
}

func (r *fakeQRRenderer) Render(ctx context.Context, payload string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	if r.err != nil {
		return "", r.err
	}
	return filepath.Join("/tmp/qrcodes", "qr-"+payload+".png"), nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []dto.KafkaMessage
}

func (p *fakePublisher) Publish(ctx context.Context, key string, message dto.KafkaMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return nil
}

func (p *fakePublisher) events(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, m := range p.messages {
		if m.EventType == eventType {
			count++
		}
	}
	return count
}

type fakeMailer struct {
	mu         sync.Mutex
	recipients []string
}

func (m *fakeMailer) SendReceipt(ctx context.Context, to string, snapshot domain.InvoiceSnapshot, invoicePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipients = append(m.recipients, to)
	return nil
}

var errStoreDown = errors.New("connection refused")

type harness struct {
	store      *memoryStore
	repo       *memoryRepository
	gateway    *fakeGateway
	messenger  *fakeMessenger
	renderer   *fakeRenderer
	qr         *fakeQRRenderer
	publisher  *fakePublisher
	mailer     *fakeMailer
	locker     *lock.LocalLocker
	dispatcher *SideEffectDispatcher
	engine     *ReconciliationEngine
	payments   PaymentService
	checkout   CheckoutService
	redemption RedemptionService
	items      ItemService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:     newMemoryStore(),
		gateway:   newFakeGateway(),
		messenger: &fakeMessenger{},
		renderer:  &fakeRenderer{dir: t.TempDir()},
		qr:        &fakeQRRenderer{},
		publisher: &fakePublisher{},
		mailer:    &fakeMailer{},
		locker:    lock.CreateLocalLocker(),
	}
	h.repo = &memoryRepository{store: h.store}

	recorder := metrics.CreateRecorder(prometheus.NewRegistry())

	h.dispatcher = CreateSideEffectDispatcher(h.repo, SideEffectDeps{
		Renderer:      h.renderer,
		QR:            h.qr,
		Messenger:     h.messenger,
		Mailer:        h.mailer,
		Publisher:     h.publisher,
		PublicBaseURL: "https://pay.example.com",
		InvoiceDir:    h.renderer.dir,
	}, recorder, false)
	h.engine = CreateReconciliationEngine(h.repo, h.dispatcher, h.publisher, recorder)
	h.payments = CreatePaymentService(h.repo, h.engine, h.dispatcher, h.gateway, h.locker, recorder, config.SweepConfig{
		Window:   24 * time.Hour,
		Limit:    200,
		LeaseTTL: time.Minute,
	})
	h.checkout = CreateCheckoutService(h.repo, h.gateway, h.messenger)
	h.redemption = CreateRedemptionService(h.repo)
	h.items = CreateItemService(h.repo)

	return h
}

func (h *harness) seedPending(code string, amount int64, items ...domain.TransactionItem) domain.Transaction {
	return h.store.seed(domain.Transaction{
		TransactionCode: code,
		CustomerName:    "Budi",
		CustomerPhone:   "081234567890",
		TotalAmount:     decimal.NewFromInt(amount),
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedAt:       time.Now().Unix(),
	}, items...)
}

func appointmentItem(storeID int64, amount int64) domain.TransactionItem {
	return domain.TransactionItem{
		ProductID:           10,
		StoreID:             storeID,
		ProductName:         "Haircut",
		Price:               decimal.NewFromInt(amount),
		Quantity:            1,
		Subtotal:            decimal.NewFromInt(amount),
		RequiresAppointment: true,
	}
}

func regularItem(storeID int64, amount int64) domain.TransactionItem {
	return domain.TransactionItem{
		ProductID:   20,
		StoreID:     storeID,
		ProductName: "Shampoo",
		Price:       decimal.NewFromInt(amount),
		Quantity:    1,
		Subtotal:    decimal.NewFromInt(amount),
	}
}

func notification(orderID, status, fraud string) dto.PaymentNotification {
	return dto.PaymentNotification{
		OrderID:           orderID,
		TransactionStatus: status,
		FraudStatus:       fraud,
		StatusCode:        "200",
		GrossAmount:       "100000.00",
		PaymentType:       "bank_transfer",
		TransactionID:     "gw-" + orderID,
		SignatureKey:      "sig",
		Raw:               []byte(`{"order_id":"` + orderID + `","transaction_status":"` + status + `"}`),
	}
}
