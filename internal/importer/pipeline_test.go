package importer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lozio/venues/internal/core"
	_ "github.com/lozio/venues/internal/core/entities"
	"github.com/lozio/venues/internal/csvparse"
	"github.com/lozio/venues/internal/export"
	"github.com/lozio/venues/internal/ledger"
)

func barsDefinition() core.EntityDefinition {
	specs := []core.FieldSpec{
		{Name: "id", Required: true},
		{Name: "name"},
		{Name: "published", Type: core.FieldBool},
	}
	return core.EntityDefinition{
		Info: core.EntityInfo{
			Key:          "bars",
			Label:        "Bars",
			Source:       "bars.csv",
			Output:       "bars.ts",
			ConstName:    "bars",
			IDColumn:     "id",
			IDKey:        "id",
			FilterColumn: "published",
		},
		FieldSpecs: specs,
		Build:      core.RuleBuilder(specs),
		ID:         core.RecordID("id"),
	}
}

func newTestPipeline(t *testing.T, files fstest.MapFS, defs ...core.EntityDefinition) (*Pipeline, *MemOutput) {
	t.Helper()
	out := NewMemOutput()
	if defs == nil {
		defs = []core.EntityDefinition{barsDefinition()}
	}
	return &Pipeline{
		Source:   files,
		Output:   out,
		Entities: defs,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, out
}

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func csvFile(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func TestRun_WritesPublishedRecords(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n2,Bar,false\n"),
	})

	sum, err := p.Run(context.Background(), "bars")
	require.NoError(t, err)

	want := export.Header + "\n\nexport const bars = [\n" +
		"  {\n" +
		"    \"id\": \"1\",\n" +
		"    \"name\": \"Foo\",\n" +
		"    \"published\": true\n" +
		"  }\n" +
		"];\n"
	assert.Equal(t, want, out.File("bars.ts"))

	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Filtered)
	assert.Equal(t, 0, sum.Skipped)
	assert.Len(t, sum.Checksum, 64)
	assert.False(t, sum.Unchanged)
}

func TestRun_EmptyResultWritesEmptyArray(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n,No id,true\n"),
	})

	sum, err := p.Run(context.Background(), "bars")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Contains(t, out.File("bars.ts"), "export const bars = [];\n")
}

func TestRun_UnknownEntity(t *testing.T) {
	p, _ := newTestPipeline(t, fstest.MapFS{})

	_, err := p.Run(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown entity "nope"`)
}

func TestRun_MissingSource(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{})

	_, err := p.Run(context.Background(), "bars")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Empty(t, out.Files)
}

func TestRun_MissingRequiredColumn(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("name,published\nFoo,true\n"),
	})

	_, err := p.Run(context.Background(), "bars")
	require.Error(t, err)
	assert.Equal(t, "bars.csv: missing required column id", err.Error())
	assert.Empty(t, out.Files)
}

func TestRun_UnterminatedQuote(t *testing.T) {
	files := fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,\"Foo,true\n2,Bar,true\n"),
	}

	t.Run("permissive", func(t *testing.T) {
		p, out := newTestPipeline(t, files)
		sum, err := p.Run(context.Background(), "bars")
		require.NoError(t, err)
		// the open quote swallows the rest of the file, so the filter
		// column of the only data row is empty
		assert.Equal(t, 1, sum.Rows)
		assert.Equal(t, 1, sum.Filtered)
		assert.Contains(t, out.File("bars.ts"), "export const bars = [];")
	})

	t.Run("strict", func(t *testing.T) {
		p, out := newTestPipeline(t, files)
		p.Options.Strict = true

		_, err := p.Run(context.Background(), "bars")
		require.Error(t, err)
		assert.True(t, errors.Is(err, csvparse.ErrUnterminatedQuote))

		var perr *csvparse.ParseError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, 2, perr.Line)
		assert.Equal(t, 3, perr.Column)
		assert.Empty(t, out.Files)
	})
}

func TestRun_FileTooLarge(t *testing.T) {
	p, _ := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n"),
	})
	p.Options.MaxFileSize = 10

	_, err := p.Run(context.Background(), "bars")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileTooLarge))
}

func TestRun_LegacyEncoding(t *testing.T) {
	// "Caff\xe8" is "Caffè" in windows-1252
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Caff\xe8,true\n"),
	})
	p.Options.Encoding = "windows-1252"

	_, err := p.Run(context.Background(), "bars")
	require.NoError(t, err)
	assert.Contains(t, out.File("bars.ts"), `"name": "Caffè"`)
}

func TestRun_FailedRowsReport(t *testing.T) {
	def := barsDefinition()
	build := def.Build
	def.Build = func(row core.Row) (any, error) {
		if row.Text("name") == "" {
			return nil, errors.New("name is required")
		}
		return build(row)
	}

	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n2,,true\n"),
	}, def)
	reports := NewMemOutput()
	p.Reports = reports

	sum, err := p.Run(context.Background(), "bars")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, "bars.failed.csv", sum.Report)
	assert.Contains(t, out.File("bars.ts"), `"id": "1"`)

	assert.Equal(t,
		"id,name,published,_record,_error\n2,,true,3,name is required\n",
		reports.File("bars.failed.csv"))
}

func TestRun_LedgerSkipsUnchangedSource(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n"),
	})
	p.Ledger = openLedger(t)
	ctx := context.Background()

	first, err := p.Run(ctx, "bars")
	require.NoError(t, err)
	assert.False(t, first.Unchanged)

	second, err := p.Run(ctx, "bars")
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.Checksum, second.Checksum)

	// a deleted output is regenerated even though the source is unchanged
	delete(out.Files, "bars.ts")
	third, err := p.Run(ctx, "bars")
	require.NoError(t, err)
	assert.False(t, third.Unchanged)
	assert.NotEmpty(t, out.File("bars.ts"))

	p.Options.Force = true
	forced, err := p.Run(ctx, "bars")
	require.NoError(t, err)
	assert.False(t, forced.Unchanged)

	runs, err := p.Ledger.(*ledger.Ledger).List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRun_LedgerDetectsChange(t *testing.T) {
	files := fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n"),
	}
	p, out := newTestPipeline(t, files)
	p.Ledger = openLedger(t)
	ctx := context.Background()

	_, err := p.Run(ctx, "bars")
	require.NoError(t, err)

	files["bars.csv"] = csvFile("id,name,published\n1,Foo,true\n2,Baz,true\n")
	sum, err := p.Run(ctx, "bars")
	require.NoError(t, err)
	assert.False(t, sum.Unchanged)
	assert.Equal(t, 2, sum.Written)
	assert.Contains(t, out.File("bars.ts"), `"name": "Baz"`)
}

func TestRun_LedgerTracksSettings(t *testing.T) {
	ctx := context.Background()
	source := fstest.MapFS{"bars.csv": csvFile("id,name,published\n1,Caff\xe8,true\n")}

	t.Run("encoding", func(t *testing.T) {
		p, out := newTestPipeline(t, source)
		p.Ledger = openLedger(t)

		_, err := p.Run(ctx, "bars")
		require.NoError(t, err)
		assert.Contains(t, out.File("bars.ts"), "Caff\uFFFD")

		p.Options.Encoding = "windows-1252"
		sum, err := p.Run(ctx, "bars")
		require.NoError(t, err)
		assert.False(t, sum.Unchanged)
		assert.Contains(t, out.File("bars.ts"), `"name": "Caffè"`)

		// spellings of the same encoding are one setting
		p.Options.Encoding = "WINDOWS-1252 "
		sum, err = p.Run(ctx, "bars")
		require.NoError(t, err)
		assert.True(t, sum.Unchanged)
	})

	t.Run("strict quotes", func(t *testing.T) {
		p, _ := newTestPipeline(t, source)
		p.Ledger = openLedger(t)

		_, err := p.Run(ctx, "bars")
		require.NoError(t, err)

		p.Options.Strict = true
		sum, err := p.Run(ctx, "bars")
		require.NoError(t, err)
		assert.False(t, sum.Unchanged)
	})

	t.Run("entity rules", func(t *testing.T) {
		def := barsDefinition()
		p, out := newTestPipeline(t, source, def)
		p.Ledger = openLedger(t)

		_, err := p.Run(ctx, "bars")
		require.NoError(t, err)

		def.Info.ConstName = "locali"
		p.Entities = []core.EntityDefinition{def}
		sum, err := p.Run(ctx, "bars")
		require.NoError(t, err)
		assert.False(t, sum.Unchanged)
		assert.Contains(t, out.File("bars.ts"), "export const locali = [")

		def.FieldSpecs = append(def.FieldSpecs, core.FieldSpec{Name: "seats", Type: core.FieldInt})
		p.Entities = []core.EntityDefinition{def}
		sum, err = p.Run(ctx, "bars")
		require.NoError(t, err)
		assert.False(t, sum.Unchanged)
	})
}

func TestRun_RecordNumbersInReport(t *testing.T) {
	def := barsDefinition()
	build := def.Build
	def.Build = func(row core.Row) (any, error) {
		if row.Text("name") == "" {
			return nil, errors.New("name is required")
		}
		return build(row)
	}

	// the quoted line break puts the rejected row on file line 4
	p, _ := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,\"Foo\nBar\",true\n2,,true\n"),
	}, def)
	reports := NewMemOutput()
	p.Reports = reports

	_, err := p.Run(context.Background(), "bars")
	require.NoError(t, err)
	assert.Equal(t,
		"id,name,published,_record,_error\n2,,true,3,name is required\n",
		reports.File("bars.failed.csv"))
}

func TestRunAll_JobsAreIndependent(t *testing.T) {
	pubs := barsDefinition()
	pubs.Info.Key = "pubs"
	pubs.Info.Source = "pubs.csv"
	pubs.Info.Output = "pubs.ts"
	pubs.Info.ConstName = "pubs"

	p, out := newTestPipeline(t, fstest.MapFS{
		"pubs.csv": csvFile("id,name,published\np1,Pub,true\n"),
	}, barsDefinition(), pubs)
	p.Options.Concurrency = 2

	sums, err := p.RunAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, strings.HasPrefix(err.Error(), "bars: "))

	require.Len(t, sums, 2)
	assert.Equal(t, "bars", sums[0].Entity)
	assert.Equal(t, "pubs", sums[1].Entity)
	assert.Equal(t, 1, sums[1].Written)
	assert.Contains(t, out.File("pubs.ts"), "export const pubs = [")
}

func TestRunAll_SelectedKeys(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n"),
	})

	sums, err := p.RunAll(context.Background(), "bars")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.NotEmpty(t, out.File("bars.ts"))
}

func TestRunAll_CancelledContext(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"bars.csv": csvFile("id,name,published\n1,Foo,true\n"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.Files)
}

func TestRun_RegisteredVenues(t *testing.T) {
	p, out := newTestPipeline(t, fstest.MapFS{
		"venues.csv": csvFile("id,name,city,rating,price_level,lat,tags,published\n" +
			"v1,Rum Bar,Roma,4.5,2,,tiki; Tiki;cocktail,true\n" +
			"v2,Hidden,Milano,,,,,false\n"),
	}, core.All()...)

	sum, err := p.Run(context.Background(), "venues")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Filtered)

	content := out.File("venues.ts")
	assert.True(t, strings.HasPrefix(content, export.Header))
	assert.Contains(t, content, "export const venues = [")
	assert.Contains(t, content, `"slug": "rum-bar"`)
	assert.Contains(t, content, `"priceLevel": 2`)
	assert.NotContains(t, content, `"lat"`)

	ids, err := export.ReadIDs(content, "id")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids)
}

func TestFailedReport_PadsShortRows(t *testing.T) {
	got := FailedReport([]string{"id", "name"}, []core.FailedRow{
		{Record: 4, Reason: `bad "quote"`, Data: []string{"x"}},
	})
	assert.Equal(t, "id,name,_record,_error\nx,,4,\"bad \"\"quote\"\"\"\n", got)
}
