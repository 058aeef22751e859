package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"energy_harmonizer/internal/logger"
	"energy_harmonizer/internal/model"
)

var t0 = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func makeFrame() model.Frame {
	return model.Frame{
		Name:    "merged",
		Columns: []string{"CUSTOMER", "Power_Consumption", "Price"},
		Rows: []model.Record{
			{DateTime: t0, Values: []model.Value{model.Text("c1"), model.Num(0.25), model.Num(41.5)}},
			{DateTime: t0.Add(time.Hour), Values: []model.Value{model.Missing(), model.Missing(), model.Num(40)}},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, makeFrame(), DefaultDelimiter))

	want := "DateTime;CUSTOMER;Power_Consumption;Price\n" +
		"2022-01-01 00:00:00;c1;0.25;41.5\n" +
		"2022-01-01 01:00:00;;;40\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	table := model.SourceTable{Header: []string{"a", "b"}, Rows: [][]string{{"1", "x,y"}}}
	require.NoError(t, WriteTable(&buf, table, ','))
	assert.Equal(t, "a,b\n1,\"x,y\"\n", buf.String())
}

func TestCSVSink_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "merged.csv")
	sink := CSVSink{Path: path, Delimiter: ','}
	require.NoError(t, sink.Write(context.Background(), makeFrame()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "DateTime,CUSTOMER"))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, makeFrame(), ""))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"DateTime", "CUSTOMER", "Power_Consumption", "Price"}, rows[0])
	assert.Equal(t, "2022-01-01 00:00:00", rows[1][0])
	assert.Equal(t, "c1", rows[1][1])
	assert.Equal(t, "", rows[2][1])

	price, err := book.GetCellValue(DefaultSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "40", price)
}

func TestXLSXSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merged.xlsx")
	require.NoError(t, XLSXSink{Path: path, Sheet: "data"}.Write(context.Background(), makeFrame()))

	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"data"}, book.GetSheetList())
}

func TestCreateTableSQL(t *testing.T) {
	sql := CreateTableSQL(pgx.Identifier{"public", "harmonized"}, makeFrame())
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "public"."harmonized" ("DateTime" timestamp NOT NULL, "CUSTOMER" text, "Power_Consumption" double precision, "Price" double precision)`,
		sql)
}

func TestPostgresSink_Integration(t *testing.T) {
	dsn := os.Getenv("HARMONIZE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HARMONIZE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	table := "harmonize_test_" + time.Now().Format("20060102150405")

	sink, err := NewPostgresSink(ctx, dsn, table, logger.Nop())
	require.NoError(t, err)
	defer sink.Close()
	defer sink.pool.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{table}.Sanitize())

	sink.Replace = true
	require.NoError(t, sink.Write(ctx, makeFrame()))
	require.NoError(t, sink.Write(ctx, makeFrame()))

	var count int
	require.NoError(t, sink.pool.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&count))
	assert.Equal(t, 2, count)

	var customer *string
	require.NoError(t, sink.pool.QueryRow(ctx,
		`SELECT "CUSTOMER" FROM `+pgx.Identifier{table}.Sanitize()+` WHERE "DateTime" = $1`, t0.Add(time.Hour)).Scan(&customer))
	assert.Nil(t, customer)
}

func TestNewPostgresSink_BadDSN(t *testing.T) {
	_, err := NewPostgresSink(context.Background(), "postgres://u@localhost:badport/db", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection pool")
}
