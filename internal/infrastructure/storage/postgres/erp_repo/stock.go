package erp_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"erpstock/internal/core/types"
	"erpstock/internal/domain/inventory"
	"erpstock/internal/infrastructure/storage/postgres"
)

var tracer = otel.Tracer("erpstock/erp_repo")

// QuerierSource yields the querier bound to ctx (the active transaction or the pool).
// Implemented by *postgres.TxManager.
type QuerierSource interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// StockRepo implements inventory.Repository over the ERP stock and item master tables.
type StockRepo struct {
	builder squirrel.StatementBuilderType
	layout  Layout
	db      QuerierSource
}

// NewStockRepo creates a new stock repository. The layout must already be validated.
func NewStockRepo(db QuerierSource, layout Layout) *StockRepo {
	return &StockRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		layout:  layout,
		db:      db,
	}
}

// stockRow is the scan target of the page query.
type stockRow struct {
	ItemID         string `db:"item_id"`
	LegacyCode     string `db:"legacy_code"`
	Description    string `db:"description"`
	LotNumber      string `db:"lot_number"`
	LocationCode   string `db:"location_code"`
	BusinessUnit   string `db:"business_unit"`
	UnitOfMeasure  string `db:"unit_of_measure"`
	QuantityScaled int64  `db:"quantity_scaled"`
}

func (r stockRow) toRecord() inventory.StockRecord {
	return inventory.StockRecord{
		ItemID:         r.ItemID,
		LegacyCode:     r.LegacyCode,
		Description:    r.Description,
		LotNumber:      r.LotNumber,
		LocationCode:   r.LocationCode,
		BusinessUnit:   r.BusinessUnit,
		UnitOfMeasure:  r.UnitOfMeasure,
		QuantityOnHand: types.QuantityFromScaled(r.QuantityScaled),
	}
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns an ILIKE pattern matching term as a substring.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// applyFilters adds the WHERE clause shared by the count and page queries.
// Every caller-provided value is bound; only layout identifiers are interpolated.
func (r *StockRepo) applyFilters(q squirrel.SelectBuilder, f inventory.FilterSet) squirrel.SelectBuilder {
	l := r.layout

	q = q.Where(fmt.Sprintf("TRIM(%s) = ?", l.s(l.Stock.BusinessUnit)), f.BusinessUnit)

	if f.Search != "" {
		pattern := containsPattern(f.Search)
		q = q.Where(fmt.Sprintf("(%s ILIKE ? OR %s ILIKE ? OR CAST(%s AS TEXT) ILIKE ?)",
			l.m(l.Item.Description),
			l.m(l.Item.LegacyCode),
			l.s(l.Stock.ItemID),
		), pattern, pattern, pattern)
	}

	if f.MinQuantityOnHand != nil {
		q = q.Where(squirrel.GtOrEq{l.s(l.Stock.OnHand): types.ScaledCeil(*f.MinQuantityOnHand)})
	}

	if f.Location != "" {
		q = q.Where(fmt.Sprintf("TRIM(%s) = ?", l.s(l.Stock.Location)), f.Location)
	}

	return q
}

func (r *StockRepo) countQuery(f inventory.FilterSet) squirrel.SelectBuilder {
	q := r.builder.Select("COUNT(*)").
		From(r.layout.stockFrom()).
		Join(r.layout.itemJoin())
	return r.applyFilters(q, f)
}

func (r *StockRepo) pageQuery(f inventory.FilterSet) squirrel.SelectBuilder {
	l := r.layout
	q := r.builder.Select(
		fmt.Sprintf("CAST(CAST(%s AS BIGINT) AS TEXT) AS item_id", l.s(l.Stock.ItemID)),
		trimmed(l.m(l.Item.LegacyCode), "legacy_code"),
		trimmed(l.m(l.Item.Description), "description"),
		trimmed(l.s(l.Stock.Lot), "lot_number"),
		trimmed(l.s(l.Stock.Location), "location_code"),
		trimmed(l.s(l.Stock.BusinessUnit), "business_unit"),
		trimmed(l.m(l.Item.UnitOfMeasure), "unit_of_measure"),
		fmt.Sprintf("COALESCE(CAST(%s AS BIGINT), 0) AS quantity_scaled", l.s(l.Stock.OnHand)),
	).
		From(l.stockFrom()).
		Join(l.itemJoin())

	q = r.applyFilters(q, f)

	// Lot and location break ties between rows of the same item so pages never overlap.
	return q.OrderBy(
		l.s(l.Stock.ItemID)+" ASC",
		l.s(l.Stock.Lot)+" ASC",
		l.s(l.Stock.Location)+" ASC",
	).Suffix("LIMIT ? OFFSET ?", f.PageSize, f.Offset())
}

func (r *StockRepo) businessUnitsQuery(limit int) squirrel.SelectBuilder {
	l := r.layout
	col := l.s(l.Stock.BusinessUnit)
	return r.builder.Select(fmt.Sprintf("TRIM(%s) AS business_unit", col)).
		Distinct().
		From(l.stockFrom()).
		Where(squirrel.NotEq{col: nil}).
		Where(fmt.Sprintf("TRIM(%s) <> ''", col)).
		OrderBy("business_unit").
		Suffix("LIMIT ?", limit)
}

func trimmed(col, alias string) string {
	return fmt.Sprintf("COALESCE(TRIM(%s), '') AS %s", col, alias)
}

// CountStock returns the number of rows matching the filters.
func (r *StockRepo) CountStock(ctx context.Context, f inventory.FilterSet) (int64, error) {
	ctx, span := r.startSpan(ctx, "CountStock", f)
	defer span.End()

	sql, args, err := r.countQuery(f).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := r.db.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		recordError(span, err)
		return 0, fmt.Errorf("count stock: %w", err)
	}

	span.SetAttributes(attribute.Int64("stock.total", total))
	return total, nil
}

// FindStock returns one page of rows ordered by item id.
func (r *StockRepo) FindStock(ctx context.Context, f inventory.FilterSet) ([]inventory.StockRecord, error) {
	ctx, span := r.startSpan(ctx, "FindStock", f)
	defer span.End()

	sql, args, err := r.pageQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build page query: %w", err)
	}

	var rows []stockRow
	if err := pgxscan.Select(ctx, r.db.GetQuerier(ctx), &rows, sql, args...); err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("select stock: %w", err)
	}

	records := make([]inventory.StockRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toRecord()
	}
	return records, nil
}

// FindBusinessUnits returns distinct trimmed business-unit codes.
func (r *StockRepo) FindBusinessUnits(ctx context.Context, limit int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "erp_repo.FindBusinessUnits",
		trace.WithAttributes(attribute.Int("query.limit", limit)))
	defer span.End()

	sql, args, err := r.businessUnitsQuery(limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build business units query: %w", err)
	}

	var units []string
	if err := pgxscan.Select(ctx, r.db.GetQuerier(ctx), &units, sql, args...); err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("select business units: %w", err)
	}
	return units, nil
}

func (r *StockRepo) startSpan(ctx context.Context, name string, f inventory.FilterSet) (context.Context, trace.Span) {
	return tracer.Start(ctx, "erp_repo."+name,
		trace.WithAttributes(
			attribute.String("stock.business_unit", f.BusinessUnit),
			attribute.Bool("stock.search", f.Search != ""),
			attribute.Bool("stock.location", f.Location != ""),
			attribute.Bool("stock.min_quantity", f.MinQuantityOnHand != nil),
			attribute.Int("stock.page", f.Page),
			attribute.Int("stock.page_size", f.PageSize),
		))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Ensure interface compliance.
var _ inventory.Repository = (*StockRepo)(nil)
