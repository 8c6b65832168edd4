package measurement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicao-erp/medicao-erp/internal/billing"
	"github.com/medicao-erp/medicao-erp/internal/contracts"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/partners"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/products"
	"github.com/medicao-erp/medicao-erp/internal/sales/orders"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepo struct {
	sheets    map[int64]*Sheet
	lines     map[int64]*Line
	invoices  map[int64]*billing.Invoice
	approvals []shared.ApprovalLog

	nextSheetID   int64
	nextLineID    int64
	nextInvoiceID int64
	seqValue      int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		sheets:        make(map[int64]*Sheet),
		lines:         make(map[int64]*Line),
		invoices:      make(map[int64]*billing.Invoice),
		nextSheetID:   1,
		nextLineID:    1,
		nextInvoiceID: 1,
	}
}

func (m *mockRepo) snapshot() (map[int64]*Sheet, map[int64]*Line, map[int64]*billing.Invoice, []shared.ApprovalLog, [4]int64) {
	sheets := make(map[int64]*Sheet, len(m.sheets))
	for k, v := range m.sheets {
		c := *v
		c.Lines = nil
		sheets[k] = &c
	}
	lines := make(map[int64]*Line, len(m.lines))
	for k, v := range m.lines {
		c := *v
		lines[k] = &c
	}
	invoices := make(map[int64]*billing.Invoice, len(m.invoices))
	for k, v := range m.invoices {
		c := *v
		c.Lines = append([]billing.InvoiceLine(nil), v.Lines...)
		invoices[k] = &c
	}
	approvals := append([]shared.ApprovalLog(nil), m.approvals...)
	return sheets, lines, invoices, approvals, [4]int64{m.nextSheetID, m.nextLineID, m.nextInvoiceID, m.seqValue}
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	sheets, lines, invoices, approvals, counters := m.snapshot()
	if err := fn(m); err != nil {
		m.sheets, m.lines, m.invoices, m.approvals = sheets, lines, invoices, approvals
		m.nextSheetID, m.nextLineID, m.nextInvoiceID, m.seqValue = counters[0], counters[1], counters[2], counters[3]
		return err
	}
	return nil
}

func (m *mockRepo) CreateSheet(ctx context.Context, s *Sheet) error {
	for _, existing := range m.sheets {
		if existing.Status == SheetStatusCancelled || existing.CompanyID != s.CompanyID || existing.Period != s.Period {
			continue
		}
		if s.SaleOrderID != nil && existing.SaleOrderID != nil && *existing.SaleOrderID == *s.SaleOrderID {
			return ErrDuplicatePeriod
		}
		if s.ContractID != nil && existing.ContractID != nil && *existing.ContractID == *s.ContractID {
			return ErrDuplicatePeriod
		}
	}
	s.ID = m.nextSheetID
	m.nextSheetID++
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	c := *s
	c.Lines = nil
	m.sheets[s.ID] = &c
	return nil
}

func (m *mockRepo) GetSheet(ctx context.Context, id int64) (*Sheet, error) {
	stored, ok := m.sheets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := *stored
	var err error
	c.Lines, err = m.ListLines(ctx, id)
	return &c, err
}

func (m *mockRepo) ListSheets(ctx context.Context, req ListSheetsRequest) ([]Sheet, int, error) {
	var out []Sheet
	for _, s := range m.sheets {
		if s.CompanyID != req.CompanyID {
			continue
		}
		if req.Status != nil && s.Status != *req.Status {
			continue
		}
		if req.PartnerID != nil && s.PartnerID != *req.PartnerID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	page, perPage := req.Page, req.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *mockRepo) UpdateSheetHeader(ctx context.Context, s *Sheet) error {
	stored, ok := m.sheets[s.ID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.RetentionPercent = s.RetentionPercent
	stored.AnalyticAccountID = s.AnalyticAccountID
	stored.SitePartnerID = s.SitePartnerID
	stored.SiteName, stored.SiteStreet, stored.SiteStreet2 = s.SiteName, s.SiteStreet, s.SiteStreet2
	stored.SiteCity, stored.SiteState, stored.SiteZip = s.SiteCity, s.SiteState, s.SiteZip
	stored.SiteCountry, stored.SiteReference, stored.Notes = s.SiteCountry, s.SiteReference, s.Notes
	stored.Period, stored.PeriodStart, stored.PeriodEnd = s.Period, s.PeriodStart, s.PeriodEnd
	return nil
}

func (m *mockRepo) UpdateSheetAmounts(ctx context.Context, s *Sheet) error {
	stored, ok := m.sheets[s.ID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.Subtotal = s.Subtotal
	stored.RetentionAmount = s.RetentionAmount
	stored.Total = s.Total
	return nil
}

func (m *mockRepo) SetStatus(ctx context.Context, id int64, status SheetStatus) error {
	stored, ok := m.sheets[id]
	if !ok {
		return shared.ErrNotFound
	}
	stored.Status = status
	return nil
}

func (m *mockRepo) LinkInvoice(ctx context.Context, sheetID, invoiceID int64) error {
	stored, ok := m.sheets[sheetID]
	if !ok {
		return shared.ErrNotFound
	}
	stored.InvoiceID = &invoiceID
	return nil
}

func (m *mockRepo) DeleteSheet(ctx context.Context, id int64) error {
	if _, ok := m.sheets[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.sheets, id)
	for lid, l := range m.lines {
		if l.SheetID == id {
			delete(m.lines, lid)
		}
	}
	return nil
}

func (m *mockRepo) InsertLine(ctx context.Context, l *Line) error {
	l.ID = m.nextLineID
	m.nextLineID++
	c := *l
	m.lines[l.ID] = &c
	return nil
}

func (m *mockRepo) GetLine(ctx context.Context, id int64) (*Line, error) {
	stored, ok := m.lines[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	c := *stored
	return &c, nil
}

func (m *mockRepo) UpdateLine(ctx context.Context, l *Line) error {
	if _, ok := m.lines[l.ID]; !ok {
		return shared.ErrNotFound
	}
	c := *l
	m.lines[l.ID] = &c
	return nil
}

func (m *mockRepo) DeleteLine(ctx context.Context, id int64) error {
	if _, ok := m.lines[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.lines, id)
	return nil
}

func (m *mockRepo) ListLines(ctx context.Context, sheetID int64) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.SheetID == sheetID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockRepo) PreviousApproved(ctx context.Context, partnerID int64, saleOrderLineID, contractLineID *int64, excludeSheetID int64) (float64, error) {
	var sum float64
	for _, l := range m.lines {
		sheet, ok := m.sheets[l.SheetID]
		if !ok || sheet.ID == excludeSheetID || sheet.PartnerID != partnerID {
			continue
		}
		if sheet.Status != SheetStatusApproved && sheet.Status != SheetStatusInvoiced {
			continue
		}
		if saleOrderLineID != nil && l.SaleOrderLineID != nil && *l.SaleOrderLineID == *saleOrderLineID {
			sum += l.ApprovedQty
		}
		if contractLineID != nil && l.ContractLineID != nil && *l.ContractLineID == *contractLineID {
			sum += l.ApprovedQty
		}
	}
	return sum, nil
}

func (m *mockRepo) NextNumber(ctx context.Context) (string, error) {
	m.seqValue++
	return fmt.Sprintf("BM/%05d", m.seqValue), nil
}

func (m *mockRepo) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	m.approvals = append(m.approvals, log)
	return nil
}

func (m *mockRepo) CreateInvoice(ctx context.Context, spec billing.InvoiceSpec) (*billing.Invoice, error) {
	inv, err := billing.BuildInvoice(spec)
	if err != nil {
		return nil, err
	}
	inv.ID = m.nextInvoiceID
	m.nextInvoiceID++
	inv.Number = fmt.Sprintf("INV/%05d", inv.ID)
	c := *inv
	c.Lines = append([]billing.InvoiceLine(nil), inv.Lines...)
	m.invoices[inv.ID] = &c
	return inv, nil
}

func (m *mockRepo) InvoiceStatus(ctx context.Context, id int64) (billing.InvoiceStatus, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return inv.Status, nil
}

// ============================================================================
// COLLABORATOR FAKES
// ============================================================================

type fakeOrders struct {
	orders map[int64]*orders.Order
	lines  map[int64]*orders.OrderLine
}

func (f *fakeOrders) GetOrder(ctx context.Context, id int64) (*orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetLine(ctx context.Context, id int64) (*orders.OrderLine, error) {
	l, ok := f.lines[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return l, nil
}

func (f *fakeOrders) ListLines(ctx context.Context, orderID int64) ([]orders.OrderLine, error) {
	var out []orders.OrderLine
	for _, l := range f.lines {
		if l.OrderID == orderID {
			out = append(out, *l)
		}
	}
	return out, nil
}

type fakeContracts struct {
	contracts map[int64]*contracts.Contract
	lines     map[int64]*contracts.ContractLine
}

func (f *fakeContracts) GetContract(ctx context.Context, id int64) (*contracts.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeContracts) GetLine(ctx context.Context, id int64) (*contracts.ContractLine, error) {
	l, ok := f.lines[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return l, nil
}

func (f *fakeContracts) ListLines(ctx context.Context, contractID int64) ([]contracts.ContractLine, error) {
	var out []contracts.ContractLine
	for _, l := range f.lines {
		if l.ContractID == contractID {
			out = append(out, *l)
		}
	}
	return out, nil
}

type fakeProducts struct {
	products map[int64]*products.Product
}

func (f *fakeProducts) Get(ctx context.Context, id int64) (*products.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) List(ctx context.Context, companyID int64, limit, offset int) ([]products.Product, error) {
	return nil, nil
}

type fakePartners struct {
	partners map[int64]*partners.Partner
}

func (f *fakePartners) Create(ctx context.Context, p *partners.Partner) error { return nil }

func (f *fakePartners) Get(ctx context.Context, id int64) (*partners.Partner, error) {
	p, ok := f.partners[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakePartners) List(ctx context.Context, req partners.ListPartnersRequest) ([]partners.Partner, error) {
	return nil, nil
}

func (f *fakePartners) SetActive(ctx context.Context, id int64, active bool) error { return nil }

type auditStub struct {
	logs []shared.AuditLog
}

func (a *auditStub) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type idemStub struct {
	keys map[string]bool
}

func (i *idemStub) CheckAndInsert(ctx context.Context, key, module string) error {
	if i.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	i.keys[key] = true
	return nil
}

func (i *idemStub) Delete(ctx context.Context, key string) error {
	delete(i.keys, key)
	return nil
}

// ============================================================================
// FIXTURE
// ============================================================================

type fixture struct {
	svc       *Service
	repo      *mockRepo
	orders    *fakeOrders
	contracts *fakeContracts
	products  *fakeProducts
	audit     *auditStub
	idem      *idemStub
}

func newFixture() *fixture {
	repo := newMockRepo()
	ords := &fakeOrders{
		orders: map[int64]*orders.Order{
			1: {ID: 1, CompanyID: 1, Number: "SO/00001", PartnerID: 10, Status: orders.OrderStatusConfirmed, CurrencyCode: "BRL"},
		},
		lines: map[int64]*orders.OrderLine{
			21: {ID: 21, OrderID: 1, ProductID: 9, Description: "Locação de escavadeira", OrderedQty: 200, PriceUnit: 12.5, UoM: "dia", TaxIDs: []int64{5}},
			22: {ID: 22, OrderID: 1, ProductID: 8, Description: "Operador", OrderedQty: 50, PriceUnit: 85, UoM: "h"},
		},
	}
	ctrs := &fakeContracts{
		contracts: map[int64]*contracts.Contract{
			3: {ID: 3, CompanyID: 1, Number: "CT/00001", PartnerID: 10, Status: contracts.ContractStatusActive, CurrencyCode: "BRL"},
		},
		lines: map[int64]*contracts.ContractLine{
			31: {ID: 31, ContractID: 3, ProductID: 9, Description: "Caminhão basculante", Quantity: 60, PriceUnit: 980, UoM: "dia"},
		},
	}
	prods := &fakeProducts{products: map[int64]*products.Product{
		9: {ID: 9, CompanyID: 1, Name: "Escavadeira", UoM: "dia", ListPrice: 1850, TaxIDs: []int64{8}},
	}}
	parts := &fakePartners{partners: map[int64]*partners.Partner{
		10: {
			ID: 10, CompanyID: 1, Name: "Construtora Horizonte",
			Street: ptr("Av. Paulista, 1000"), City: ptr("São Paulo"),
			State: ptr("SP"), Zip: ptr("01310-100"), Country: ptr("BR"),
		},
		11: {
			ID: 11, CompanyID: 1, Name: "Canteiro Leste",
			Street: ptr("Rua das Obras, 55"), Street2: ptr("Galpão B"),
			City: ptr("Campinas"), State: ptr("SP"), Zip: ptr("13010-000"), Country: ptr("BR"),
		},
	}}
	audit := &auditStub{}
	idem := &idemStub{keys: map[string]bool{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(ServiceDeps{
		Repo:       repo,
		Orders:     ords,
		Contracts:  ctrs,
		Products:   prods,
		Partners:   parts,
		Aggregator: NewAggregator(repo, nil, 0, logger),
		Audit:      audit,
		Idem:       idem,
		Logger:     logger,
	})
	return &fixture{svc: svc, repo: repo, orders: ords, contracts: ctrs, products: prods, audit: audit, idem: idem}
}

func (f *fixture) createSheet(t *testing.T, req CreateSheetRequest) *Sheet {
	t.Helper()
	if req.CompanyID == 0 {
		req.CompanyID = 1
	}
	if req.PartnerID == 0 {
		req.PartnerID = 10
	}
	if req.CreatedBy == 0 {
		req.CreatedBy = 7
	}
	sheet, err := f.svc.CreateSheet(context.Background(), req)
	require.NoError(t, err)
	return sheet
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateSheetAssignsNumberAndPeriod(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{
		Period: &shared.Period{Year: 2026, Month: 3},
	})

	assert.Equal(t, "BM/00001", sheet.Number)
	assert.Equal(t, SheetStatusDraft, sheet.Status)
	assert.Equal(t, ModeQuantity, sheet.Mode)
	assert.Equal(t, "BRL", sheet.CurrencyCode)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), sheet.PeriodStart)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), sheet.PeriodEnd)

	second := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 4}})
	assert.Equal(t, "BM/00002", second.Number)
}

func TestCreateSheetUnknownPartner(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateSheet(context.Background(), CreateSheetRequest{
		CompanyID: 1, PartnerID: 999, CreatedBy: 7,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateSheetDuplicatePeriod(t *testing.T) {
	f := newFixture()
	period := &shared.Period{Year: 2026, Month: 5}
	first := f.createSheet(t, CreateSheetRequest{SaleOrderID: ptr(int64(1)), Period: period})

	_, err := f.svc.CreateSheet(context.Background(), CreateSheetRequest{
		CompanyID: 1, PartnerID: 10, CreatedBy: 7,
		SaleOrderID: ptr(int64(1)), Period: period,
	})
	assert.ErrorIs(t, err, ErrDuplicatePeriod)

	// a cancelled predecessor no longer blocks the period
	require.NoError(t, f.repo.SetStatus(context.Background(), first.ID, SheetStatusCancelled))
	again, err := f.svc.CreateSheet(context.Background(), CreateSheetRequest{
		CompanyID: 1, PartnerID: 10, CreatedBy: 7,
		SaleOrderID: ptr(int64(1)), Period: period,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestAddLineDerivesFromOrderLine(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{
		SaleOrderID: ptr(int64(1)),
		Mode:        ModePercent,
	})

	line, err := f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{
		SaleOrderLineID: ptr(int64(21)),
		MeasuredPercent: 25,
	})
	require.NoError(t, err)

	assert.Equal(t, defaultLineSequence, line.Sequence)
	assert.Equal(t, "Locação de escavadeira", line.Description)
	assert.Equal(t, "dia", line.UoM)
	assert.Equal(t, 12.5, line.PriceUnit)
	assert.Equal(t, 200.0, line.BaseQty)
	assert.Equal(t, 50.0, line.ApprovedQty, "25% of 200")
	assert.Equal(t, 625.0, line.Subtotal)

	stored, err := f.svc.Get(context.Background(), sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, 625.0, stored.Subtotal)
}

func TestAddLineRejectsForeignOrderLine(t *testing.T) {
	f := newFixture()
	f.orders.orders[2] = &orders.Order{ID: 2, CompanyID: 1, Number: "SO/00002", PartnerID: 10, CurrencyCode: "BRL"}
	sheet := f.createSheet(t, CreateSheetRequest{SaleOrderID: ptr(int64(2))})

	_, err := f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{
		SaleOrderLineID: ptr(int64(21)), // belongs to order 1
		MeasuredQty:     1,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAddLineUserOverrides(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{})

	line, err := f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{
		ProductID:   ptr(int64(9)),
		Description: "Aluguel negociado",
		PriceUnit:   ptr(1500.0),
		MeasuredQty: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Aluguel negociado", line.Description, "explicit name wins over product name")
	assert.Equal(t, 1500.0, line.PriceUnit)
	assert.Equal(t, "dia", line.UoM, "unit still copied from product")
	assert.Equal(t, 3000.0, line.Subtotal)
}

func TestUpdateLineReferenceChangeRederives(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{Mode: ModePercent, ContractID: ptr(int64(3))})
	line, err := f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{
		Description:     "linha livre",
		PriceUnit:       ptr(10.0),
		MeasuredPercent: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, line.ApprovedQty, "free line has no base quantity")

	updated, err := f.svc.UpdateLine(context.Background(), sheet.ID, line.ID, UpdateLineRequest{
		ContractLineID: ptr(int64(31)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Caminhão basculante", updated.Description)
	assert.Equal(t, 980.0, updated.PriceUnit)
	assert.Equal(t, 60.0, updated.BaseQty)
	assert.Equal(t, 30.0, updated.ApprovedQty, "50% of 60")
}

func TestUpdateLineClearSource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{SaleOrderID: ptr(int64(1))})
	line, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{SaleOrderLineID: ptr(int64(21)), MeasuredQty: 10})
	require.NoError(t, err)

	updated, err := f.svc.UpdateLine(ctx, sheet.ID, line.ID, UpdateLineRequest{ClearSource: true})
	require.NoError(t, err)
	assert.Nil(t, updated.SaleOrderLineID)
	assert.Nil(t, updated.ContractLineID)
	assert.Equal(t, "Locação de escavadeira", updated.Description, "derived values survive the detach")
	assert.Equal(t, 12.5, updated.PriceUnit)

	sum, err := f.svc.PreviousApproved(ctx, sheet.ID, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum, "a detached line no longer aggregates across periods")

	_, err = f.svc.UpdateLine(ctx, sheet.ID, line.ID, UpdateLineRequest{
		ClearSource:     true,
		SaleOrderLineID: ptr(int64(22)),
	})
	assert.Error(t, err, "clearing and assigning a source at once is rejected")
}

func TestUpdateSheetRetentionRecomputes(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{})
	_, err := f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{
		Description: "Serviço", PriceUnit: ptr(100.0), MeasuredQty: 10,
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateSheet(context.Background(), sheet.ID, UpdateSheetRequest{
		RetentionPercent: ptr(10.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, updated.Subtotal)
	assert.Equal(t, 100.0, updated.RetentionAmount)
	assert.Equal(t, 900.0, updated.Total)
}

func TestUpdateSheetPeriodOnlyWhileDraft(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 3}})

	updated, err := f.svc.UpdateSheet(context.Background(), sheet.ID, UpdateSheetRequest{
		Period: &shared.Period{Year: 2026, Month: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, shared.Period{Year: 2026, Month: 4}, updated.Period)
	assert.Equal(t, time.April, updated.PeriodStart.Month())
	assert.Equal(t, 30, updated.PeriodEnd.Day())

	_, err = f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{Description: "Serviço", MeasuredQty: 1})
	require.NoError(t, err)
	err = f.svc.Submit(context.Background(), BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7})
	require.NoError(t, err)

	_, err = f.svc.UpdateSheet(context.Background(), sheet.ID, UpdateSheetRequest{
		Period: &shared.Period{Year: 2026, Month: 5},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestSitePartnerPrefillsAddress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{
		SitePartnerID: ptr(int64(10)),
		SiteCity:      ptr("Guarulhos"),
	})

	assert.Equal(t, "Av. Paulista, 1000", *sheet.SiteStreet)
	assert.Equal(t, "Guarulhos", *sheet.SiteCity, "explicit fields win over the prefill")
	assert.Equal(t, "SP", *sheet.SiteState)
	assert.Equal(t, "01310-100", *sheet.SiteZip)
	assert.Equal(t, "BR", *sheet.SiteCountry)

	// reassigning the site partner refills the address
	updated, err := f.svc.UpdateSheet(ctx, sheet.ID, UpdateSheetRequest{
		SitePartnerID: ptr(int64(11)),
		SiteReference: ptr("Portão 3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rua das Obras, 55", *updated.SiteStreet)
	assert.Equal(t, "Galpão B", *updated.SiteStreet2)
	assert.Equal(t, "Campinas", *updated.SiteCity)
	assert.Equal(t, "Portão 3", *updated.SiteReference)

	// the prefilled address stays editable afterwards
	edited, err := f.svc.UpdateSheet(ctx, sheet.ID, UpdateSheetRequest{SiteStreet: ptr("Rua das Obras, 60")})
	require.NoError(t, err)
	assert.Equal(t, "Rua das Obras, 60", *edited.SiteStreet)
	assert.Equal(t, int64(11), *edited.SitePartnerID)

	_, err = f.svc.CreateSheet(ctx, CreateSheetRequest{
		CompanyID: 1, PartnerID: 10, CreatedBy: 7,
		SitePartnerID: ptr(int64(99)),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound, "unknown site partner is rejected")
}

func TestSubmitRequiresLines(t *testing.T) {
	f := newFixture()
	sheet := f.createSheet(t, CreateSheetRequest{})

	err := f.svc.Submit(context.Background(), BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7})
	assert.ErrorIs(t, err, ErrNoLines)

	_, err = f.svc.AddLine(context.Background(), sheet.ID, AddLineRequest{Description: "Serviço", MeasuredQty: 1})
	require.NoError(t, err)

	err = f.svc.Submit(context.Background(), BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7})
	require.NoError(t, err)

	stored, err := f.svc.Get(context.Background(), sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, SheetStatusSubmitted, stored.Status)
	require.Len(t, f.repo.approvals, 1)
	assert.Equal(t, shared.ApprovalSubmit, f.repo.approvals[0].Action)
}

func TestBatchAllOrNothing(t *testing.T) {
	f := newFixture()
	withLine := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 1}})
	_, err := f.svc.AddLine(context.Background(), withLine.ID, AddLineRequest{Description: "ok", MeasuredQty: 1})
	require.NoError(t, err)
	empty := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 2}})

	err = f.svc.Submit(context.Background(), BatchActionRequest{SheetIDs: []int64{withLine.ID, empty.ID}, ActorID: 7})
	require.ErrorIs(t, err, ErrNoLines)

	// the first sheet's transition rolled back with the batch
	stored, err := f.svc.Get(context.Background(), withLine.ID)
	require.NoError(t, err)
	assert.Equal(t, SheetStatusDraft, stored.Status)
}

func TestBatchRollbackDiscardsApprovalHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	withLine := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 1}})
	_, err := f.svc.AddLine(ctx, withLine.ID, AddLineRequest{Description: "ok", MeasuredQty: 1})
	require.NoError(t, err)
	empty := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 2}})

	err = f.svc.Submit(ctx, BatchActionRequest{SheetIDs: []int64{withLine.ID, empty.ID}, ActorID: 7})
	require.ErrorIs(t, err, ErrNoLines)

	assert.Empty(t, f.repo.approvals, "no approval entry survives a rolled-back batch")

	require.NoError(t, f.svc.Submit(ctx, BatchActionRequest{SheetIDs: []int64{withLine.ID}, ActorID: 7}))
	require.Len(t, f.repo.approvals, 1)
	assert.Equal(t, withLine.ID, f.repo.approvals[0].RefID)
}

func TestPreviousApprovedAcrossSheets(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ref := ptr(int64(21))

	makeApproved := func(month int, qty float64) {
		sheet := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: month}})
		_, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{SaleOrderLineID: ref, MeasuredQty: qty})
		require.NoError(t, err)
		require.NoError(t, f.svc.Approve(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7}))
	}
	makeApproved(1, 10)
	makeApproved(2, 15)

	current := f.createSheet(t, CreateSheetRequest{Period: &shared.Period{Year: 2026, Month: 3}})
	line, err := f.svc.AddLine(ctx, current.ID, AddLineRequest{SaleOrderLineID: ref, MeasuredQty: 5})
	require.NoError(t, err)

	sum, err := f.svc.PreviousApproved(ctx, current.ID, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, sum, "10 + 15 from the other sheets, excluding this one")

	detail, err := f.svc.GetDetailed(ctx, current.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, 25.0, detail.Lines[0].PreviousApprovedQty)
}

func TestPreviousApprovedFreeLineIsZero(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{})
	line, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{Description: "livre", MeasuredQty: 3})
	require.NoError(t, err)

	sum, err := f.svc.PreviousApproved(ctx, sheet.ID, line.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum)
}

func TestGenerateInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{
		SaleOrderID:      ptr(int64(1)),
		RetentionPercent: 10,
	})
	_, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{
		Description: "Linha A", PriceUnit: ptr(5.0), MeasuredQty: 10,
	})
	require.NoError(t, err)
	_, err = f.svc.AddLine(ctx, sheet.ID, AddLineRequest{
		Description: "Linha B", PriceUnit: ptr(100.0), MeasuredQty: 0, Sequence: 20,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7}))

	invoice, err := f.svc.GenerateInvoice(ctx, sheet.ID, GenerateInvoiceRequest{ActorID: 7})
	require.NoError(t, err)

	require.Len(t, invoice.Lines, 2, "zero-quantity line excluded, retention appended")
	assert.Equal(t, "Linha A", invoice.Lines[0].Description)
	assert.Equal(t, RetentionLabel, invoice.Lines[1].Description)
	assert.Equal(t, -5.0, invoice.Lines[1].PriceUnit)
	assert.InDelta(t, 45.0, invoice.AmountTotal, 1e-9)
	assert.Contains(t, invoice.Origin, sheet.Number)
	assert.Contains(t, invoice.Origin, "SO/00001")

	stored, err := f.svc.Get(ctx, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, SheetStatusInvoiced, stored.Status)
	require.NotNil(t, stored.InvoiceID)
	assert.Equal(t, invoice.ID, *stored.InvoiceID)

	last := f.repo.approvals[len(f.repo.approvals)-1]
	assert.Equal(t, shared.ApprovalInvoice, last.Action)
}

func TestGenerateInvoiceWrongStateReleasesKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{})

	_, err := f.svc.GenerateInvoice(ctx, sheet.ID, GenerateInvoiceRequest{ActorID: 7, IdempotencyKey: "k1"})
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)
	assert.False(t, f.idem.keys["k1"], "failed generation must release the key")
}

func TestGenerateInvoiceIdempotencyConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{})
	_, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{Description: "s", PriceUnit: ptr(10.0), MeasuredQty: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.Submit(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7}))

	_, err = f.svc.GenerateInvoice(ctx, sheet.ID, GenerateInvoiceRequest{ActorID: 7, IdempotencyKey: "same"})
	require.NoError(t, err)

	_, err = f.svc.GenerateInvoice(ctx, sheet.ID, GenerateInvoiceRequest{ActorID: 7, IdempotencyKey: "same"})
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func TestCancelBlockedByPostedInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{})
	_, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{Description: "s", PriceUnit: ptr(10.0), MeasuredQty: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.Approve(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7}))

	invoice, err := f.svc.GenerateInvoice(ctx, sheet.ID, GenerateInvoiceRequest{ActorID: 7})
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusDraft, invoice.Status)

	// draft invoice does not block
	err = f.svc.Cancel(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7})
	require.NoError(t, err)

	// rebuild the scenario with a posted invoice
	f2 := newFixture()
	sheet2 := f2.createSheet(t, CreateSheetRequest{})
	_, err = f2.svc.AddLine(ctx, sheet2.ID, AddLineRequest{Description: "s", PriceUnit: ptr(10.0), MeasuredQty: 1})
	require.NoError(t, err)
	require.NoError(t, f2.svc.Approve(ctx, BatchActionRequest{SheetIDs: []int64{sheet2.ID}, ActorID: 7}))
	invoice2, err := f2.svc.GenerateInvoice(ctx, sheet2.ID, GenerateInvoiceRequest{ActorID: 7})
	require.NoError(t, err)
	f2.repo.invoices[invoice2.ID].Status = billing.InvoiceStatusPosted

	err = f2.svc.Cancel(ctx, BatchActionRequest{SheetIDs: []int64{sheet2.ID}, ActorID: 7})
	assert.ErrorIs(t, err, ErrInvoicePosted)
}

func TestDeleteSheetOnlyDraftOrCancelled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sheet := f.createSheet(t, CreateSheetRequest{})
	_, err := f.svc.AddLine(ctx, sheet.ID, AddLineRequest{Description: "s", MeasuredQty: 1})
	require.NoError(t, err)
	require.NoError(t, f.svc.Submit(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7}))

	err = f.svc.DeleteSheet(ctx, sheet.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidStatus)

	require.NoError(t, f.svc.SetToDraft(ctx, BatchActionRequest{SheetIDs: []int64{sheet.ID}, ActorID: 7}))
	require.NoError(t, f.svc.DeleteSheet(ctx, sheet.ID))

	_, err = f.svc.Get(ctx, sheet.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, f.repo.lines, "lines do not outlive their sheet")
}
