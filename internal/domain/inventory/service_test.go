package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpstock/internal/core/apperror"
	"erpstock/internal/core/types"
)

const testBU = "9301000050"

// storedRow mirrors a raw ERP stock row: padded text, scaled integer quantity.
type storedRow struct {
	itemID      int64
	legacyCode  string
	description string
	lot         string
	location    string
	bu          string
	uom         string
	qoh         int64
	noMaster    bool
}

// memRepo evaluates the same predicate as the SQL repository over rows in memory.
type memRepo struct {
	rows     []storedRow
	units    []*string
	countErr error
	findErr  error
	calls    []string
}

func (r *memRepo) match(f FilterSet) []storedRow {
	var out []storedRow
	for _, row := range r.rows {
		if row.noMaster {
			continue
		}
		if strings.TrimSpace(row.bu) != f.BusinessUnit {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(row.description), needle) &&
				!strings.Contains(strings.ToLower(row.legacyCode), needle) &&
				!strings.Contains(strconv.FormatInt(row.itemID, 10), needle) {
				continue
			}
		}
		if f.MinQuantityOnHand != nil && row.qoh < types.ScaledCeil(*f.MinQuantityOnHand) {
			continue
		}
		if f.Location != "" && strings.TrimSpace(row.location) != f.Location {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].itemID != out[j].itemID {
			return out[i].itemID < out[j].itemID
		}
		if out[i].lot != out[j].lot {
			return out[i].lot < out[j].lot
		}
		return out[i].location < out[j].location
	})
	return out
}

func (r *memRepo) CountStock(ctx context.Context, f FilterSet) (int64, error) {
	r.calls = append(r.calls, "count")
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.match(f))), nil
}

func (r *memRepo) FindStock(ctx context.Context, f FilterSet) ([]StockRecord, error) {
	r.calls = append(r.calls, "find")
	if r.findErr != nil {
		return nil, r.findErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := r.match(f)
	start := f.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + f.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	items := make([]StockRecord, 0, end-start)
	for _, row := range rows[start:end] {
		items = append(items, StockRecord{
			ItemID:         strconv.FormatInt(row.itemID, 10),
			LegacyCode:     strings.TrimSpace(row.legacyCode),
			Description:    strings.TrimSpace(row.description),
			LotNumber:      strings.TrimSpace(row.lot),
			LocationCode:   strings.TrimSpace(row.location),
			BusinessUnit:   strings.TrimSpace(row.bu),
			UnitOfMeasure:  strings.TrimSpace(row.uom),
			QuantityOnHand: types.QuantityFromScaled(row.qoh),
		})
	}
	return items, nil
}

func (r *memRepo) FindBusinessUnits(ctx context.Context, limit int) ([]string, error) {
	r.calls = append(r.calls, "units")
	if r.countErr != nil {
		return nil, r.countErr
	}
	seen := map[string]bool{}
	var out []string
	for _, u := range r.units {
		if u == nil {
			continue
		}
		v := strings.TrimSpace(*u)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeTxManager records how many snapshots were opened and released.
type fakeTxManager struct {
	opened   int
	released int
}

func (m *fakeTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.opened++
	defer func() { m.released++ }()
	return fn(ctx)
}

func seedRows(n int) []storedRow {
	rows := make([]storedRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, storedRow{
			itemID:      int64(1000 + (n-i)*7),
			legacyCode:  fmt.Sprintf("LIT-%03d   ", i),
			description: fmt.Sprintf("Item %d      ", i),
			lot:         "    ",
			location:    "A-01 ",
			bu:          "  " + testBU,
			uom:         "UN",
			qoh:         int64(i * 100),
		})
	}
	return rows
}

func newTestService(repo *memRepo) (*Service, *fakeTxManager) {
	txm := &fakeTxManager{}
	return NewService(repo, txm), txm
}

func TestListStock_PaginationScenario(t *testing.T) {
	repo := &memRepo{rows: seedRows(25)}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	page1, err := svc.ListStock(ctx, FilterSet{BusinessUnit: testBU, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 25, page1.Total)
	assert.Len(t, page1.Items, 20)
	assert.Equal(t, 1, page1.Page)
	assert.Equal(t, 20, page1.PageSize)

	page2, err := svc.ListStock(ctx, FilterSet{BusinessUnit: testBU, Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 25, page2.Total)
	assert.Len(t, page2.Items, 5)
}

func TestListStock_PageLengths(t *testing.T) {
	repo := &memRepo{rows: seedRows(23)}
	svc, _ := newTestService(repo)

	for _, pageSize := range []int{1, 5, 7, 23, 100} {
		for page := 1; page <= 6; page++ {
			res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU, Page: page, PageSize: pageSize})
			require.NoError(t, err)

			want := int(res.Total) - (page-1)*pageSize
			if want < 0 {
				want = 0
			}
			if want > pageSize {
				want = pageSize
			}
			assert.Len(t, res.Items, want, "page=%d pageSize=%d", page, pageSize)
		}
	}
}

func TestListStock_OrderingAndConcatenation(t *testing.T) {
	repo := &memRepo{rows: seedRows(30)}
	svc, _ := newTestService(repo)
	ctx := context.Background()

	var concatenated []StockRecord
	for page := 1; page <= 3; page++ {
		res, err := svc.ListStock(ctx, FilterSet{BusinessUnit: testBU, Page: page, PageSize: 8})
		require.NoError(t, err)
		concatenated = append(concatenated, res.Items...)
	}

	single, err := svc.ListStock(ctx, FilterSet{BusinessUnit: testBU, Page: 1, PageSize: 24})
	require.NoError(t, err)
	assert.Equal(t, single.Items, concatenated)

	for i := 1; i < len(single.Items); i++ {
		prev, _ := strconv.ParseInt(single.Items[i-1].ItemID, 10, 64)
		cur, _ := strconv.ParseInt(single.Items[i].ItemID, 10, 64)
		assert.LessOrEqual(t, prev, cur)
	}
}

func TestListStock_Idempotent(t *testing.T) {
	repo := &memRepo{rows: seedRows(12)}
	svc, _ := newTestService(repo)
	filters := FilterSet{BusinessUnit: testBU, Search: "item", Page: 1, PageSize: 10}

	first, err := svc.ListStock(context.Background(), filters)
	require.NoError(t, err)
	second, err := svc.ListStock(context.Background(), filters)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListStock_NormalizesRecords(t *testing.T) {
	repo := &memRepo{rows: []storedRow{{
		itemID: 42, legacyCode: " 0042-AB ", description: "Tornillo 3/8   ",
		lot: "L1  ", location: " B-2", bu: "    " + testBU, uom: "KG ", qoh: 537,
	}}}
	svc, _ := newTestService(repo)

	res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	item := res.Items[0]
	assert.Equal(t, "42", item.ItemID)
	assert.Equal(t, "0042-AB", item.LegacyCode)
	assert.Equal(t, "Tornillo 3/8", item.Description)
	assert.Equal(t, "L1", item.LotNumber)
	assert.Equal(t, "B-2", item.LocationCode)
	assert.Equal(t, testBU, item.BusinessUnit)
	assert.Equal(t, "KG", item.UnitOfMeasure)
	assert.Equal(t, "5.37", item.QuantityOnHand.String())
}

func TestListStock_MinQuantity(t *testing.T) {
	repo := &memRepo{rows: []storedRow{{itemID: 1, description: "x", bu: testBU, qoh: 537}}}
	svc, _ := newTestService(repo)

	tests := []struct {
		min  string
		want int64
	}{
		{"5.00", 1},
		{"5.37", 1},
		{"5.40", 0},
		{"0", 1},
	}
	for _, tt := range tests {
		t.Run(tt.min, func(t *testing.T) {
			bound := types.MustQuantity(tt.min)
			res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU, MinQuantityOnHand: &bound})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Total)
		})
	}
}

func TestListStock_SearchMatchesAnyColumn(t *testing.T) {
	repo := &memRepo{rows: []storedRow{
		{itemID: 501, legacyCode: "VALV-PVC-20", description: "Valvula bola", bu: testBU},
		{itemID: 777, legacyCode: "ZZZ", description: "Codo", bu: testBU},
		{itemID: 900, legacyCode: "ABC", description: "Tubo", bu: testBU},
	}}
	svc, _ := newTestService(repo)

	tests := []struct {
		search string
		want   []string
	}{
		{"pvc", []string{"501"}},   // legacy code only
		{"CODO", []string{"777"}},  // description, case-insensitive
		{"90", []string{"900"}},    // item id as text
		{"  tubo ", []string{"900"}},
		{"' OR '1'='1", nil},
		{"%", nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU, Search: tt.search})
			require.NoError(t, err)

			var got []string
			for _, it := range res.Items {
				got = append(got, it.ItemID)
			}
			assert.Equal(t, tt.want, got)
			assert.EqualValues(t, len(tt.want), res.Total)
		})
	}
}

func TestListStock_ExcludesOtherBusinessUnitsAndMissingMaster(t *testing.T) {
	repo := &memRepo{rows: []storedRow{
		{itemID: 1, bu: testBU},
		{itemID: 2, bu: "9301000099"},
		{itemID: 3, bu: testBU, noMaster: true},
	}}
	svc, _ := newTestService(repo)

	res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "1", res.Items[0].ItemID)
}

func TestListStock_LocationFilter(t *testing.T) {
	repo := &memRepo{rows: []storedRow{
		{itemID: 1, bu: testBU, location: "A-01  "},
		{itemID: 2, bu: testBU, location: "B-07  "},
	}}
	svc, _ := newTestService(repo)

	res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU, Location: "B-07"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "2", res.Items[0].ItemID)
}

func TestListStock_EmptyResultIsNotNil(t *testing.T) {
	svc, _ := newTestService(&memRepo{})

	res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU})
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Total)
}

func TestListStock_Validation(t *testing.T) {
	negative := types.MustQuantity("-1")
	huge := types.MustQuantity("100000000000000000")

	tests := []struct {
		name    string
		filters FilterSet
	}{
		{"missing business unit", FilterSet{Page: 1, PageSize: 20}},
		{"blank business unit", FilterSet{BusinessUnit: "   ", Page: 1, PageSize: 20}},
		{"page below one", FilterSet{BusinessUnit: testBU, Page: -1, PageSize: 20}},
		{"page size too large", FilterSet{BusinessUnit: testBU, Page: 1, PageSize: 101}},
		{"page size negative", FilterSet{BusinessUnit: testBU, Page: 1, PageSize: -5}},
		{"negative minimum", FilterSet{BusinessUnit: testBU, MinQuantityOnHand: &negative}},
		{"minimum beyond stored range", FilterSet{BusinessUnit: testBU, MinQuantityOnHand: &huge}},
		{"offset overflows", FilterSet{BusinessUnit: testBU, Page: 922337203685477581, PageSize: 20}},
		{"page past max offset", FilterSet{BusinessUnit: testBU, Page: math.MaxInt/MaxPageSize + 2, PageSize: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{rows: seedRows(3)}
			svc, txm := newTestService(repo)

			_, err := svc.ListStock(context.Background(), tt.filters)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
			assert.Empty(t, repo.calls)
			assert.Zero(t, txm.opened)
		})
	}
}

func TestFilterSet_Bounds(t *testing.T) {
	t.Run("largest page keeps a non-negative offset", func(t *testing.T) {
		f := FilterSet{BusinessUnit: testBU, Page: math.MaxInt/MaxPageSize + 1, PageSize: MaxPageSize}
		require.NoError(t, f.Validate())
		assert.GreaterOrEqual(t, f.Offset(), 0)
	})

	t.Run("largest representable minimum is accepted", func(t *testing.T) {
		bound := types.MustQuantity("92233720368547758.07")
		f := FilterSet{BusinessUnit: testBU, Page: 1, PageSize: 20, MinQuantityOnHand: &bound}
		require.NoError(t, f.Validate())
		assert.Equal(t, int64(math.MaxInt64), types.ScaledCeil(bound))
	})
}

func TestListStock_Defaults(t *testing.T) {
	svc, _ := newTestService(&memRepo{rows: seedRows(30)})

	res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, DefaultPageSize, res.PageSize)
	assert.Len(t, res.Items, DefaultPageSize)
}

func TestListStock_StoreFailure(t *testing.T) {
	connErr := errors.New("dial tcp 10.1.1.1:5432: connect: connection refused")

	tests := []struct {
		name      string
		repo      *memRepo
		wantCalls []string
	}{
		{"count fails", &memRepo{rows: seedRows(5), countErr: connErr}, []string{"count"}},
		{"find fails", &memRepo{rows: seedRows(5), findErr: connErr}, []string{"count", "find"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, txm := newTestService(tt.repo)

			res, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU})
			require.Error(t, err)
			assert.True(t, apperror.IsStore(err))
			assert.ErrorIs(t, err, connErr)
			assert.Equal(t, ResultPage{}, res)
			assert.Equal(t, tt.wantCalls, tt.repo.calls)
			assert.Equal(t, txm.opened, txm.released)
		})
	}
}

func TestListStock_Cancelled(t *testing.T) {
	repo := &memRepo{rows: seedRows(5)}
	svc, txm := newTestService(repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.ListStock(ctx, FilterSet{BusinessUnit: testBU})
	require.Error(t, err)
	assert.True(t, apperror.IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ResultPage{}, res)
	assert.Equal(t, 1, txm.released)
}

func TestListStock_SingleSnapshot(t *testing.T) {
	repo := &memRepo{rows: seedRows(5)}
	svc, txm := newTestService(repo)

	_, err := svc.ListStock(context.Background(), FilterSet{BusinessUnit: testBU})
	require.NoError(t, err)
	assert.Equal(t, 1, txm.opened)
	assert.Equal(t, 1, txm.released)
	assert.Equal(t, []string{"count", "find"}, repo.calls)
}

func TestListBusinessUnits(t *testing.T) {
	s := func(v string) *string { return &v }
	repo := &memRepo{units: []*string{s("B"), s("A"), nil, s("A"), s("   "), s("C"), s("")}}
	svc, _ := newTestService(repo)

	res, err := svc.ListBusinessUnits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, res.BusinessUnits)
	assert.Equal(t, 3, res.Total)
}

func TestListBusinessUnits_Empty(t *testing.T) {
	svc, _ := newTestService(&memRepo{})

	res, err := svc.ListBusinessUnits(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.BusinessUnits)
	assert.Zero(t, res.Total)
}

func TestListBusinessUnits_StoreFailure(t *testing.T) {
	svc, txm := newTestService(&memRepo{countErr: errors.New("timeout expired")})

	_, err := svc.ListBusinessUnits(context.Background())
	assert.True(t, apperror.IsStore(err))
	assert.Equal(t, txm.opened, txm.released)
}
