package quality

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timegrid-io/timegrid/pkg/adapter"
)

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestGate_AllRulesPass(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(countRows(42))

	gate := NewGate("raw", []Rule{
		{Name: "no_nulls", Query: "SELECT COUNT(*) FROM t WHERE c IS NULL", Kind: MustBeZero, Message: "nulls in c"},
		{Name: "t_populated", Query: "SELECT COUNT(*) FROM t", Kind: MustBeNonzero, Message: "t is empty"},
	}, nil)

	require.NoError(t, gate.Run(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGate_FailFast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Only the first two rules may ever reach the database.
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(countRows(0))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(countRows(3))

	gate := NewGate("staging", []Rule{
		{Name: "first", Query: "SELECT COUNT(*) FROM a", Kind: MustBeZero, Message: "a"},
		{Name: "second", Query: "SELECT COUNT(*) FROM b", Kind: MustBeZero, Message: "duplicates in b"},
		{Name: "third", Query: "SELECT COUNT(*) FROM c", Kind: MustBeZero, Message: "c"},
	}, nil)

	err = gate.Run(context.Background(), db)
	require.Error(t, err)

	var gerr *GateError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "staging", gerr.Tier)
	assert.Equal(t, "second", gerr.Rule)
	assert.Equal(t, int64(3), gerr.Count)
	assert.Contains(t, gerr.Error(), "duplicates in b")

	assert.NoError(t, mock.ExpectationsWereMet(), "rules after the failure must not execute")
}

func TestGate_RowCountFloorFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(countRows(0))

	gate := NewGate("production", []Rule{
		{Name: "fact_populated", Query: "SELECT COUNT(*) FROM prod.fact_timesheet", Kind: MustBeNonzero, Message: "fact is empty"},
	}, nil)

	var gerr *GateError
	require.ErrorAs(t, gate.Run(context.Background(), db), &gerr)
	assert.Equal(t, int64(0), gerr.Count)
}

func TestGate_QueryErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)

	gate := NewGate("raw", []Rule{
		{Name: "broken", Query: "SELECT COUNT(*) FROM missing", Kind: MustBeZero},
	}, nil)

	err = gate.Run(context.Background(), db)
	require.ErrorIs(t, err, assert.AnError)
}

func TestTierGates_RuleOrder(t *testing.T) {
	raw := RawGate(nil)
	require.NotEmpty(t, raw.Rules)
	assert.Equal(t, "no_null_allocation_name", raw.Rules[0].Name)
	assert.Equal(t, "timesheet_hours_in_range", raw.Rules[len(raw.Rules)-1].Name)

	staging := StagingGate(nil)
	assert.Equal(t, "no_null_date_id", staging.Rules[0].Name)
	assert.Equal(t, "log_within_estimate", staging.Rules[len(staging.Rules)-1].Name)

	prod := ProductionGate(nil)
	assert.Equal(t, "dim_team_member_populated", prod.Rules[0].Name)
	for _, r := range prod.Rules[:5] {
		assert.Equal(t, MustBeNonzero, r.Kind, "row count floors come first")
	}
}

// metaAdapter exposes information_schema metadata through the adapter
// surface the type check consumes.
type metaAdapter struct{ adapter.BaseSQLAdapter }

func (m *metaAdapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return m.GetTableMetadataCommon(ctx, table, "prod", "$1", "$2")
}

func newMetaAdapter(t *testing.T) (*metaAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := &metaAdapter{}
	a.Conn = db
	return a, mock
}

func metadataRows(cols ...[2]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"})
	for i, c := range cols {
		rows.AddRow(c[0], c[1], "NO", i+1)
	}
	return rows
}

func TestCheckColumnTypes_Pass(t *testing.T) {
	a, mock := newMetaAdapter(t)

	expected := []TableTypes{{Schema: "prod", Table: "dim_task", Columns: []ColumnType{
		{"task_id", "integer"},
		{"task_name", "text"},
	}}}

	mock.ExpectQuery("information_schema.columns").
		WithArgs("prod", "dim_task").
		WillReturnRows(metadataRows([2]string{"task_id", "integer"}, [2]string{"task_name", "text"}))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	require.NoError(t, CheckColumnTypes(context.Background(), a, expected, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckColumnTypes_Mismatch(t *testing.T) {
	a, mock := newMetaAdapter(t)

	expected := []TableTypes{{Schema: "prod", Table: "fact_timesheet", Columns: []ColumnType{
		{"log_hours", "double precision"},
	}}}

	mock.ExpectQuery("information_schema.columns").
		WithArgs("prod", "fact_timesheet").
		WillReturnRows(metadataRows([2]string{"log_hours", "numeric"}))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := CheckColumnTypes(context.Background(), a, expected, nil)

	var serr *SchemaMismatchError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "prod.fact_timesheet", serr.Table)
	assert.Equal(t, "double precision", serr.Expected)
	assert.Equal(t, "numeric", serr.Actual)
}

func TestCheckColumnTypes_MissingColumn(t *testing.T) {
	a, mock := newMetaAdapter(t)

	expected := []TableTypes{{Schema: "prod", Table: "dim_date", Columns: []ColumnType{
		{"date_id", "integer"},
		{"is_weekend", "boolean"},
	}}}

	mock.ExpectQuery("information_schema.columns").
		WithArgs("prod", "dim_date").
		WillReturnRows(metadataRows([2]string{"date_id", "integer"}))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	err := CheckColumnTypes(context.Background(), a, expected, nil)

	var serr *SchemaMismatchError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "is_weekend", serr.Column)
	assert.Empty(t, serr.Actual)
	assert.Contains(t, serr.Error(), "not found")
}

func TestCheckColumnTypes_MissingTable(t *testing.T) {
	a, mock := newMetaAdapter(t)

	expected := []TableTypes{{Schema: "prod", Table: "dim_project", Columns: []ColumnType{
		{"project_id", "integer"},
	}}}

	mock.ExpectQuery("information_schema.columns").
		WithArgs("prod", "dim_project").
		WillReturnRows(metadataRows())

	err := CheckColumnTypes(context.Background(), a, expected, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestProductionTypes_MatchesContract(t *testing.T) {
	types := ProductionTypes()
	require.Len(t, types, 5)

	byTable := map[string][]ColumnType{}
	for _, tt := range types {
		byTable[tt.Table] = tt.Columns
	}
	assert.Len(t, byTable["fact_timesheet"], 7)
	assert.Len(t, byTable["dim_date"], 7)
	assert.Len(t, byTable["dim_task"], 2)
}
