package codenet_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/treedump/pkg/codenet"
)

const (
	root   = "/codenet"
	output = "/out/pairs.jsonl"
)

const metaHeader = "submission_id,problem_id,user_id,date,language,original_language,filename_ext,status,cpu_time,memory,code_size,accuracy\n"

func metaRow(id, lang, status, size string) string {
	return id + ",p,u,0," + lang + "," + lang + ",x," + status + ",0,0," + size + ",1/1\n"
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()

	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func testOptions() codenet.Options {
	return codenet.Options{
		Root:   root,
		Output: output,
		Status: "Accepted",
		Source: codenet.Language{Name: "Python", Ext: "py"},
		Target: codenet.Language{Name: "Go", Ext: "go"},
	}
}

// dataset builds four problems:
//
//	p1: paired, shortest accepted wins, shortest Python file is missing
//	p2: no Go directory
//	p3: directories present but no accepted Go submission
//	p4: paired, no description, non-ASCII code
func dataset(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()

	writeFile(t, fs, root+"/metadata/problem_list.csv", "id,name,dataset\np1,A,AIZU\np2,B,AIZU\np3,C,AIZU\n,blank,AIZU\np4,D,AIZU\n")

	writeFile(t, fs, root+"/metadata/p1.csv", metaHeader+
		metaRow("s1", "Python", "Accepted", "50")+
		metaRow("s2", "Python", "Accepted", "10")+
		metaRow("s3", "Python", "Accepted", "20")+
		metaRow("s4", "Python", "Wrong Answer", "1")+
		metaRow("s5", "Python", "Accepted", "n/a")+
		metaRow("g1", "Go", "Accepted", "30")+
		metaRow("g2", "Go", "Accepted", "30"))
	writeFile(t, fs, root+"/data/p1/Python/s1.py", "print('long')\n")
	writeFile(t, fs, root+"/data/p1/Python/s3.py", "print(3)\n")
	writeFile(t, fs, root+"/data/p1/Python/s4.py", "wrong\n")
	writeFile(t, fs, root+"/data/p1/Python/s5.py", "nan\n")
	writeFile(t, fs, root+"/data/p1/Go/g1.go", "package main\n")
	writeFile(t, fs, root+"/data/p1/Go/g2.go", "package second\n")
	writeFile(t, fs, root+"/data/p1/description.html", "<h1>Sum</h1>")

	writeFile(t, fs, root+"/metadata/p2.csv", metaHeader+metaRow("s1", "Python", "Accepted", "5"))
	writeFile(t, fs, root+"/data/p2/Python/s1.py", "x\n")

	writeFile(t, fs, root+"/metadata/p3.csv", metaHeader+
		metaRow("s1", "Python", "Accepted", "5")+
		metaRow("g1", "Go", "Runtime Error", "5"))
	writeFile(t, fs, root+"/data/p3/Python/s1.py", "x\n")
	writeFile(t, fs, root+"/data/p3/Go/g1.go", "package main\n")

	writeFile(t, fs, root+"/metadata/p4.csv", metaHeader+
		metaRow("s1", "Python", "Accepted", "7")+
		metaRow("g1", "Go", "Accepted", "9"))
	writeFile(t, fs, root+"/data/p4/Python/s1.py", "print('héllo')\n")
	writeFile(t, fs, root+"/data/p4/Go/g1.go", "package main // 世界\n")

	return fs
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func readRecords(t *testing.T, fs afero.Fs) ([]map[string]string, string) {
	t.Helper()

	data, err := afero.ReadFile(fs, output)
	require.NoError(t, err)

	var records []map[string]string

	for line := range strings.SplitSeq(strings.TrimSuffix(string(data), "\n"), "\n") {
		var rec map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &rec))

		records = append(records, rec)
	}

	return records, string(data)
}

func TestExtractor_Run(t *testing.T) {
	t.Parallel()

	fs := dataset(t)
	ex := codenet.NewExtractor(fs, testOptions(), quietLogger(), nil)

	summary, err := ex.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Problems)
	assert.Equal(t, 2, summary.Pairs)
	assert.Equal(t, 1, summary.SkippedNoDirs)
	assert.Equal(t, 1, summary.SkippedNoAccepted)
	assert.Equal(t, output, summary.Output)

	records, raw := readRecords(t, fs)
	require.Len(t, records, 2)

	assert.Equal(t, map[string]string{
		"problem_id":          "p1",
		"python_code":         "print(3)\n",
		"go_code":             "package main\n",
		"problem_description": "<h1>Sum</h1>",
	}, records[0])

	assert.Equal(t, "p4", records[1]["problem_id"])
	assert.Equal(t, "print('héllo')\n", records[1]["python_code"])
	assert.Empty(t, records[1]["problem_description"])

	assert.True(t, strings.HasPrefix(raw, `{"problem_id": "p1", "python_code": "print(3)\n", "go_code": `))
	assert.Contains(t, raw, "世界")
	assert.Contains(t, raw, "<h1>Sum</h1>")
}

func TestExtractor_MissingProblemList(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	ex := codenet.NewExtractor(fs, testOptions(), quietLogger(), nil)

	_, err := ex.Run(context.Background())
	require.ErrorIs(t, err, codenet.ErrProblemListNotFound)

	exists, err := afero.Exists(fs, output)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExtractor_MissingMetadataSkips(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, root+"/metadata/problem_list.csv", "id\np9\n")
	writeFile(t, fs, root+"/data/p9/Python/s1.py", "x\n")
	writeFile(t, fs, root+"/data/p9/Go/g1.go", "package main\n")

	summary, err := codenet.NewExtractor(fs, testOptions(), quietLogger(), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Pairs)
	assert.Equal(t, 1, summary.SkippedNoAccepted)

	data, err := afero.ReadFile(fs, output)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestExtractor_CanceledKeepsPreviousCorpus(t *testing.T) {
	t.Parallel()

	fs := dataset(t)
	writeFile(t, fs, output, "previous\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := codenet.NewExtractor(fs, testOptions(), quietLogger(), nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	data, err := afero.ReadFile(fs, output)
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(data))
}

func TestExtractor_ReversedPair(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Source, opts.Target = opts.Target, opts.Source

	fs := dataset(t)

	summary, err := codenet.NewExtractor(fs, opts, quietLogger(), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pairs)

	_, raw := readRecords(t, fs)
	assert.True(t, strings.HasPrefix(raw, `{"problem_id": "p1", "go_code": "package main\n", "python_code": `))
}

func TestExtractor_ProgressOutput(t *testing.T) {
	t.Parallel()

	var progressOut bytes.Buffer

	_, err := codenet.NewExtractor(dataset(t), testOptions(), quietLogger(), &progressOut).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, progressOut.String(), "Processing problems")
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	codenet.WriteSummary(&out, &codenet.Summary{
		Output:            output,
		Problems:          4053,
		Pairs:             1234,
		SkippedNoDirs:     2000,
		SkippedNoAccepted: 819,
	})

	text := out.String()
	assert.Contains(t, text, "Pairs extracted")
	assert.Contains(t, text, "1,234")
	assert.Contains(t, text, "4,053")
	assert.Contains(t, text, output)
}

func TestLanguage_Field(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "python_code", codenet.Language{Name: "Python"}.Field())
	assert.Equal(t, "c++_code", codenet.Language{Name: "C++"}.Field())
}
