package codenet

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptedSubmissions_SortedStable(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/m.csv", []byte(
		"submission_id,language,status,code_size\n"+
			"a,Go,Accepted,30\n"+
			"b,Go,Accepted,12.0\n"+
			"c,Go,Accepted,30\n"+
			"d,Go,Accepted,\n"+
			"e,Python,Accepted,1\n"+
			"f,Go,Compile Error,1\n"+
			"\"g\",Go,Accepted,\"5\"\n",
	), 0o644))

	subs, err := acceptedSubmissions(fs, "/m.csv", "Go", "Accepted")
	require.NoError(t, err)

	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.id)
	}

	assert.Equal(t, []string{"g", "b", "a", "c"}, ids)
}

func TestAcceptedSubmissions_MissingColumn(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/m.csv", []byte("submission_id,language\na,Go\n"), 0o644))

	_, err := acceptedSubmissions(fs, "/m.csv", "Go", "Accepted")
	require.ErrorIs(t, err, errMissingColumn)
}

func TestProblemIDs_SkipsBlank(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/list.csv", []byte("id,name\np1,a\n ,b\np2,c\n"), 0o644))

	ids, err := problemIDs(fs, "/list.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	_, err = problemIDs(fs, "/nope.csv")
	require.Error(t, err)
}
