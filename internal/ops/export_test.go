package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func seedProposal(t *testing.T, database *sql.DB, p review.Proposal) *db.SaveResult {
	t.Helper()
	res, err := db.NewRecords(database).SaveProposal(context.Background(), db.SaveInput{Proposal: p, LinkSiblings: true})
	require.NoError(t, err)
	return res
}

func TestExport_WritesHeaderAndEveryKind(t *testing.T) {
	ctx := context.Background()
	exportsDir := withHome(t)
	database := newTestDB(t)

	_, err := InboxAdd(ctx, database, InboxAddInput{RawText: "Comprar pão amanhã"})
	require.NoError(t, err)
	res := seedProposal(t, database, review.Proposal{
		Informations: []string{"O voo sai às 8h"},
		Ideas:        []string{"Viagem ao Japão"},
		Tasks:        []string{"Pesquisar passagens", "Reservar hotel"},
	})
	_, err = ComposePlan(ctx, database, ComposePlanInput{
		IdeaID:  res.Ideas[0].ID,
		TaskIDs: []string{res.Tasks[0].ID, res.Tasks[1].ID},
	})
	require.NoError(t, err)

	out, err := Export(ctx, database, config.DefaultConfig(), ExportInput{})
	require.NoError(t, err)
	require.Equal(t, exportsDir, filepath.Dir(out.Path))
	require.Equal(t, 6, out.Count)
	require.Equal(t, 1, out.Counts[record.KindInbox])
	require.Equal(t, 2, out.Counts[record.KindTask])
	require.Equal(t, 1, out.Counts[record.KindPlan])

	file, err := os.Open(out.Path)
	require.NoError(t, err)
	defer file.Close()

	scanner := bufio.NewScanner(file)
	require.True(t, scanner.Scan())
	var header ExportHeader
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &header))
	require.True(t, header.SiftExport)
	require.Equal(t, ExportSchemaVersion, header.SchemaVersion)

	var kinds []record.Kind
	for scanner.Scan() {
		var line ExportLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		kinds = append(kinds, line.Kind)
	}
	require.Equal(t, []record.Kind{
		record.KindInbox, record.KindInformation, record.KindIdea,
		record.KindTask, record.KindTask, record.KindPlan,
	}, kinds)

	leftovers, err := filepath.Glob(filepath.Join(exportsDir, "*.tmp"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	withHome(t)
	database := newTestDB(t)

	_, err := Export(context.Background(), database, config.DefaultConfig(), ExportInput{
		Path: filepath.Join(t.TempDir(), "out.jsonl"),
	})
	require.Error(t, err)
}

func TestExport_Cancelled(t *testing.T) {
	withHome(t)
	database := newTestDB(t)
	_, err := InboxAdd(context.Background(), database, InboxAddInput{RawText: "nota"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Export(ctx, database, config.DefaultConfig(), ExportInput{})
	require.Error(t, err)
}
