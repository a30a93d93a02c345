package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Zuo-Peng/nbtrack/internal/record"
)

func entry(idx int, id, input, output string) record.Entry {
	n := idx + 10
	return record.Entry{
		Record: record.Record{
			EventTime:      time.Date(2025, 3, 1, 12, 0, idx, 0, time.UTC),
			NotebookPath:   "/nb/a.ipynb",
			CellIndex:      idx,
			CellID:         id,
			ExecutionCount: &n,
			Input:          input,
			Output:         output,
		},
		Line: idx,
	}
}

func TestRenderLogPlain(t *testing.T) {
	entries := []record.Entry{
		entry(1, "c1", "import os", ""),
		entry(2, "c2", "print('hi')\nprint('there')", "hi\nthere"),
	}
	out, hit := RenderLog(entries, Options{HitSeq: 1, Plain: true})

	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "--- /nb/a.ipynb (2 records) ---")
	assert.Contains(t, out, "  import os\n")
	assert.Contains(t, out, "  print('there')\n")
	assert.Contains(t, out, "  Out:\n  hi\n  there\n")
	assert.Contains(t, out, "In[12]")

	lines := strings.Split(out, "\n")
	if assert.GreaterOrEqual(t, hit, 0) {
		assert.True(t, strings.HasPrefix(lines[hit], ">> "), lines[hit])
		assert.Contains(t, lines[hit], "c2")
	}
}

func TestRenderLogNoHit(t *testing.T) {
	_, hit := RenderLog([]record.Entry{entry(1, "c1", "x", "")}, Options{HitSeq: -1, Plain: true})
	assert.Equal(t, -1, hit)

	out, hit := RenderLog(nil, Options{HitSeq: 0})
	assert.Equal(t, "(empty log)", out)
	assert.Equal(t, -1, hit)
}

func TestRenderLogColor(t *testing.T) {
	out, _ := RenderLog([]record.Entry{entry(1, "c1", "def f(x):\n    return x", "")}, Options{HitSeq: -1})
	assert.Contains(t, out, "\033[")
	assert.Contains(t, out, "return")

	out, _ = RenderLog([]record.Entry{entry(1, "c1", "total = 1", "total")}, Options{HitSeq: -1, Query: "total"})
	assert.Contains(t, out, colorBoldRed+"total"+colorReset)
}

func TestRenderLogWraps(t *testing.T) {
	long := strings.Repeat("x", 30)
	out, _ := RenderLog([]record.Entry{entry(1, "c1", long, "")}, Options{HitSeq: -1, Plain: true, Width: 10})
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, len(l), 10, l)
	}
}

func TestHighlightKeywords(t *testing.T) {
	got := highlightKeywords("Foo and foo", "foo AND")
	assert.Equal(t, colorBoldRed+"Foo"+colorReset+" and "+colorBoldRed+"foo"+colorReset, got)
	assert.Equal(t, "plain", highlightKeywords("plain", ""))
}

func TestWrapLine(t *testing.T) {
	assert.Equal(t, []string{"abc", "def", "g"}, wrapLine("abcdefg", 3))
	assert.Equal(t, []string{"数据", "汇总"}, wrapLine("数据汇总", 4))
	assert.Equal(t, []string{"\033[1mab", "c\033[0m"}, wrapLine("\033[1mabc\033[0m", 2))
	assert.Equal(t, []string{""}, wrapLine("", 5))
	assert.Equal(t, []string{"anything"}, wrapLine("anything", 0))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "#3 c3 In[13] import os", Summary(entry(3, "c3", "\nimport os\nimport sys", "")))
	e := entry(1, "c1", "", "")
	e.ExecutionCount = nil
	assert.Equal(t, "#1 c1 In[ ] (empty)", Summary(e))
}

func TestFilter(t *testing.T) {
	entries := []record.Entry{
		entry(1, "c1", "import os", ""),
		entry(2, "c2", "x = 1", "OS error"),
		entry(3, "c1", "y = 2", ""),
	}
	assert.Len(t, Filter(entries, "", ""), 3)
	assert.Len(t, Filter(entries, "c1", ""), 2)
	assert.Len(t, Filter(entries, "", "os"), 2)
	assert.Len(t, Filter(entries, "c1", "os"), 1)
}
