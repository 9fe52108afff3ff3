package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innscanner/logger"
	"innscanner/metrics"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return logger.ContextWithLogger(ctx, logger.NewLogger(logger.TestConfig()))
}

// applicationTree раскладывает две заявки так, как они приходят из архива
func applicationTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePDF(t, filepath.Join(root, "Заявка_001", "ЕГРЮЛ.pdf"), "ООО Ромашка", "ИНН: 7707083893")
	writeXML(t, filepath.Join(root, "Заявка_001", "Выписка.xml"), "<Сведения>ИНН 500100732259</Сведения>")
	writeFile(t, filepath.Join(root, "Заявка_001", "Договор.pdf"), buildPDF("ИНН 1111111111"))
	writeXML(t, filepath.Join(root, "Заявка_002", "docs", "выписка из ЕГРЮЛ.xml"), "<a>ИНН: 7707083893</a>")
	writeXML(t, filepath.Join(root, "прочее", "Выписка.xml"), "<a>ИНН: 2222222222</a>")
	return root
}

func TestScanner_ProcessFolder(t *testing.T) {
	t.Run("Should collect unique sorted INNs from qualifying files only", func(t *testing.T) {
		root := applicationTree(t)
		s := NewScanner(Options{})

		report, err := s.ProcessFolder(testContext(t), filepath.Join(root, "Заявка_001"))

		require.NoError(t, err)
		assert.Equal(t, "Заявка_001", report.Name)
		assert.Equal(t, []string{"500100732259", "7707083893"}, report.INNs)
		assert.Len(t, report.Files, 2)
		assert.Empty(t, report.Failures())
	})

	t.Run("Should descend into nested directories", func(t *testing.T) {
		root := applicationTree(t)

		report, err := NewScanner(Options{}).ProcessFolder(testContext(t), filepath.Join(root, "Заявка_002"))

		require.NoError(t, err)
		assert.Equal(t, []string{"7707083893"}, report.INNs)
	})

	t.Run("Should skip non-matching names regardless of extension", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "ЕГРЮЛ.docx"), []byte("ИНН 7707083893"))
		writeXML(t, filepath.Join(dir, "Выписка.xml"), "<a>ИНН 500100732259</a>")

		report, err := NewScanner(Options{}).ProcessFolder(testContext(t), dir)

		require.NoError(t, err)
		assert.Equal(t, []string{"500100732259"}, report.INNs)
		require.Len(t, report.Files, 1)
		assert.Equal(t, FormatXML, report.Files[0].Format)
	})

	t.Run("Should return empty list for folder without documents", func(t *testing.T) {
		report, err := NewScanner(Options{}).ProcessFolder(testContext(t), t.TempDir())

		require.NoError(t, err)
		assert.True(t, report.Empty())
		assert.Empty(t, report.Files)
	})

	t.Run("Should isolate broken file under skip policy", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "ЕГРЮЛ.pdf"), []byte("не pdf"))
		writeXML(t, filepath.Join(dir, "Выписка.xml"), "<a>ИНН 7707083893</a>")

		report, err := NewScanner(Options{Policy: PolicySkip}).ProcessFolder(testContext(t), dir)

		require.NoError(t, err)
		assert.Equal(t, []string{"7707083893"}, report.INNs)
		failures := report.Failures()
		require.Len(t, failures, 1)
		assert.NotEmpty(t, failures[0].Error)
		assert.Nil(t, report.Failed)
	})

	t.Run("Should discard folder INNs under folder policy", func(t *testing.T) {
		dir := t.TempDir()
		writeXML(t, filepath.Join(dir, "Выписка.xml"), "<a>ИНН 7707083893</a>")
		writeFile(t, filepath.Join(dir, "ЕГРЮЛ.pdf"), []byte("не pdf"))

		report, err := NewScanner(Options{Policy: PolicyFolder}).ProcessFolder(testContext(t), dir)

		require.NoError(t, err)
		assert.Empty(t, report.INNs)
		var folderErr *FolderError
		require.ErrorAs(t, report.Failed, &folderErr)
		assert.Equal(t, dir, folderErr.Folder)
		assert.NotEmpty(t, report.Error)
	})

	t.Run("Should return error under abort policy", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "ЕГРЮЛ.pdf"), []byte("не pdf"))

		_, err := NewScanner(Options{Policy: PolicyAbort}).ProcessFolder(testContext(t), dir)

		var folderErr *FolderError
		require.ErrorAs(t, err, &folderErr)
		assert.ErrorIs(t, err, ErrUnsupported)
	})

	t.Run("Should stop when context is canceled", func(t *testing.T) {
		root := applicationTree(t)
		ctx, cancel := context.WithCancel(testContext(t))
		cancel()

		_, err := NewScanner(Options{}).ProcessFolder(ctx, filepath.Join(root, "Заявка_001"))

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Should collect INNs from every page of a PDF", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "Заявка_005")
		writeFile(t, filepath.Join(dir, "ЕГРЮЛ.pdf"), buildPDFPages(
			[]string{"first page ИНН 7707083893"},
			[]string{"second ИНН 500100732259"},
		))

		report, err := NewScanner(Options{}).ProcessFolder(testContext(t), dir)

		require.NoError(t, err)
		require.Len(t, report.Files, 1)
		assert.Equal(t, []string{"7707083893", "500100732259"}, report.Files[0].INNs)
		assert.Equal(t, []string{"500100732259", "7707083893"}, report.INNs)
	})
}

func TestScanner_MatchFolders(t *testing.T) {
	t.Run("Should match keyword case-insensitively at any depth", func(t *testing.T) {
		root := t.TempDir()
		for _, dir := range []string{"Заявка_001", "архив/ЗАЯВКА 7", "прочее", "заявка-старая"} {
			require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755))
		}

		folders, err := NewScanner(Options{}).MatchFolders(testContext(t), root)

		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(root, "Заявка_001"),
			filepath.Join(root, "архив", "ЗАЯВКА 7"),
			filepath.Join(root, "заявка-старая"),
		}, folders)
	})

	t.Run("Should not match root itself", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "Заявка_корень")
		require.NoError(t, os.MkdirAll(root, 0o755))

		folders, err := NewScanner(Options{}).MatchFolders(testContext(t), root)

		require.NoError(t, err)
		assert.Empty(t, folders)
	})

	t.Run("Should fail on missing root", func(t *testing.T) {
		_, err := NewScanner(Options{}).MatchFolders(testContext(t), filepath.Join(t.TempDir(), "нет"))

		assert.Error(t, err)
	})
}

func TestScanner_Scan(t *testing.T) {
	t.Run("Should extract INNs from markup and paginated documents", func(t *testing.T) {
		root := t.TempDir()
		writeXML(t, filepath.Join(root, "Заявка_001", "Выписка.xml"), "<a>ИНН:7712345678 далее текст</a>")
		writePDF(t, filepath.Join(root, "Заявка_002", "ЕГРЮЛ.pdf"), "(ИНН) 123456789012 конец")

		result, err := NewScanner(Options{}).Scan(testContext(t), root)

		require.NoError(t, err)
		require.Len(t, result.Folders, 2)
		assert.Equal(t, []string{"7712345678"}, result.Folders[0].INNs)
		assert.Equal(t, []string{"123456789012"}, result.Folders[1].INNs)
		assert.Equal(t, []string{"123456789012", "7712345678"}, result.INNs)
	})

	t.Run("Should count identifier found in two folders once", func(t *testing.T) {
		root := t.TempDir()
		writeXML(t, filepath.Join(root, "Заявка_A", "Выписка.xml"), "<a>ИНН 7712345678</a>")
		writeXML(t, filepath.Join(root, "Заявка_B", "Выписка.xml"), "<a>ИНН 7712345678 и ИНН 7712345678</a>")

		result, err := NewScanner(Options{}).Scan(testContext(t), root)

		require.NoError(t, err)
		assert.Equal(t, []string{"7712345678"}, result.INNs)
		assert.Equal(t, []string{"7712345678"}, result.Folders[1].INNs)
	})

	t.Run("Should union INNs across application folders", func(t *testing.T) {
		root := applicationTree(t)
		rec := metrics.New()

		result, err := NewScanner(Options{Metrics: rec}).Scan(testContext(t), root)

		require.NoError(t, err)
		assert.Equal(t, 2, result.FolderCount)
		assert.Equal(t, []string{"500100732259", "7707083893"}, result.INNs)
		require.Len(t, result.Folders, 2)
		assert.Equal(t, "Заявка_001", result.Folders[0].Name)
		assert.Equal(t, "Заявка_002", result.Folders[1].Name)
		assert.NotContains(t, result.INNs, "2222222222")
		assert.NotContains(t, result.INNs, "1111111111")
	})

	t.Run("Should return empty result when no folder matches", func(t *testing.T) {
		root := t.TempDir()
		writeXML(t, filepath.Join(root, "прочее", "Выписка.xml"), "<a>ИНН 7707083893</a>")

		result, err := NewScanner(Options{}).Scan(testContext(t), root)

		require.NoError(t, err)
		assert.Zero(t, result.FolderCount)
		assert.Empty(t, result.INNs)
	})

	t.Run("Should report folder without qualifying files as empty", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "Заявка_003", "Договор.pdf"), buildPDF("ИНН 7707083893"))

		result, err := NewScanner(Options{}).Scan(testContext(t), root)

		require.NoError(t, err)
		assert.Equal(t, 1, result.FolderCount)
		assert.Empty(t, result.INNs)
		assert.True(t, result.Folders[0].Empty())
	})

	t.Run("Should keep walk order with several workers", func(t *testing.T) {
		root := t.TempDir()
		names := []string{"Заявка_01", "Заявка_02", "Заявка_03", "Заявка_04", "Заявка_05"}
		inns := []string{"1000000001", "1000000002", "1000000003", "1000000004", "1000000005"}
		for i, name := range names {
			writeXML(t, filepath.Join(root, name, "Выписка.xml"), "<a>ИНН "+inns[i]+"</a>")
		}

		result, err := NewScanner(Options{Workers: 3}).Scan(testContext(t), root)

		require.NoError(t, err)
		require.Len(t, result.Folders, len(names))
		for i, report := range result.Folders {
			assert.Equal(t, names[i], report.Name)
			assert.Equal(t, []string{inns[i]}, report.INNs)
		}
		assert.Equal(t, inns, result.INNs)
	})

	t.Run("Should abort whole scan under abort policy", func(t *testing.T) {
		root := applicationTree(t)
		writeFile(t, filepath.Join(root, "Заявка_002", "ЕГРЮЛ.pdf"), []byte("битый"))

		result, err := NewScanner(Options{Policy: PolicyAbort}).Scan(testContext(t), root)

		assert.Nil(t, result)
		var folderErr *FolderError
		assert.ErrorAs(t, err, &folderErr)
	})

	t.Run("Should keep other folders under folder policy", func(t *testing.T) {
		root := applicationTree(t)
		writeFile(t, filepath.Join(root, "Заявка_001", "ЕГРЮЛ битый.pdf"), []byte("битый"))

		result, err := NewScanner(Options{Policy: PolicyFolder}).Scan(testContext(t), root)

		require.NoError(t, err)
		assert.Equal(t, []string{"7707083893"}, result.INNs)
		assert.NotNil(t, result.Folders[0].Failed)
	})
}
