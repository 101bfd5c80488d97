package transcript

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ccollicutt/chatlog/pkg/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{
			name: "author message",
			line: "3/6/21, 2:30 am - RK: hello",
			want: Entry{Date: "3/6/21", Time: "2:30 am", Remainder: "RK: hello"},
		},
		{
			name: "only first separator splits",
			line: "3/6/21, 2:30 am - RK: left - right",
			want: Entry{Date: "3/6/21", Time: "2:30 am", Remainder: "RK: left - right"},
		},
		{
			name: "narrow no-break space after comma",
			line: "3/6/21,\u202f2:30\u202fam - RK: hi",
			want: Entry{Date: "3/6/21", Time: "2:30\u202fam", Remainder: "RK: hi"},
		},
		{
			name: "empty remainder",
			line: "3/6/21, 2:30 am - ",
			want: Entry{Date: "3/6/21", Time: "2:30 am", Remainder: ""},
		},
		{
			name: "delimiter at end of line",
			line: "3/6/21, 2:30 am -",
			want: Entry{Date: "3/6/21", Time: "2:30 am", Remainder: ""},
		},
		{
			name: "no-break space before delimiter",
			line: "3/6/21, 2:31 am\u00a0- Priya: on my way",
			want: Entry{Date: "3/6/21", Time: "2:31 am", Remainder: "Priya: on my way"},
		},
		{
			name: "narrow no-break space around delimiter",
			line: "3/6/21, 2:31\u202fam\u202f-\u202fPriya: ok",
			want: Entry{Date: "3/6/21", Time: "2:31\u202fam", Remainder: "Priya: ok"},
		},
		{
			name:    "no comma",
			line:    "3/6/21 2:30 am - RK: hi",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingSeparator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitAuthor(t *testing.T) {
	tests := []struct {
		name        string
		remainder   string
		wantAuthor  string
		wantMessage string
		wantOK      bool
	}{
		{name: "single name", remainder: "RK: hello", wantAuthor: "RK", wantMessage: " hello", wantOK: true},
		{name: "full name", remainder: "Priya Sharma: I'm good", wantAuthor: "Priya Sharma", wantMessage: " I'm good", wantOK: true},
		{name: "later colons become spaces", remainder: "RK: meet at 10:30", wantAuthor: "RK", wantMessage: " meet at 10 30", wantOK: true},
		{name: "phone author", remainder: "+91 98765 43210: hi", wantAuthor: "+91 98765 43210", wantMessage: " hi", wantOK: true},
		{name: "system notice", remainder: "You were added to the group", wantMessage: "You were added to the group"},
		{name: "notice with colon later", remainder: `RK changed the subject to "a: b"`, wantMessage: `RK changed the subject to "a: b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			author, message, ok := SplitAuthor(tt.remainder)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAuthor, author)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestReconstruct_WorkedExample(t *testing.T) {
	lines := []string{
		"3/6/21, 2:30 am - RK: hello",
		"how are you?",
		"3/6/21, 2:31 am - Priya Sharma: I'm good",
	}

	records, err := Reconstruct(lines)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{Date: "3/6/21", Time: "2:30 am", Author: "RK", Message: "hello how are you?", LineNum: 1}, records[0])
	assert.Equal(t, Record{Date: "3/6/21", Time: "2:31 am", Author: "Priya Sharma", Message: "I'm good", LineNum: 3}, records[1])
}

func TestReconstruct_SystemNotice(t *testing.T) {
	records, err := Reconstruct([]string{
		"3/6/21, 2:29 am - You were added",
		"3/6/21, 2:30 am - RK: hi",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.False(t, records[0].HasAuthor())
	assert.True(t, records[0].HasTimestamp())
	assert.Equal(t, "You were added", records[0].Message)
	assert.Equal(t, "RK", records[1].Author)
}

func TestReconstruct_EmptyInput(t *testing.T) {
	records, err := Reconstruct(nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Record{}, records[0])
}

func TestReconstruct_NoEntryStarts(t *testing.T) {
	records, err := Reconstruct([]string{"just some", "  text  "})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.False(t, rec.HasTimestamp())
	assert.False(t, rec.HasAuthor())
	assert.Equal(t, "just some text", rec.Message)
	assert.Equal(t, 1, rec.LineNum)
}

func TestReconstruct_Preamble(t *testing.T) {
	records, err := Reconstruct([]string{
		"exported chat",
		"3/6/21, 2:30 am - RK: hi",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{Message: "exported chat", LineNum: 1}, records[0])
	assert.Equal(t, "hi", records[1].Message)
}

func TestReconstruct_WhitespaceContinuation(t *testing.T) {
	records, err := Reconstruct([]string{
		"3/6/21, 2:30 am - RK: first",
		"   ",
		"",
		"last",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first   last", records[0].Message)
}

func TestReconstruct_TrailingEmptyLine(t *testing.T) {
	records, err := Reconstruct([]string{"3/6/21, 2:30 am - RK: hi", ""})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "hi ", records[0].Message)
}

func TestReconstruct_StripsWhitespaceAndByteOrderMark(t *testing.T) {
	records, err := Reconstruct([]string{
		"\ufeff3/6/21, 2:30 am - RK: hi  ",
		"\t  there\t",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "hi there", records[0].Message)
	assert.Equal(t, "RK", records[0].Author)
}

func TestReconstruct_MalformedNumericsPassThrough(t *testing.T) {
	records, err := Reconstruct([]string{"13/45/99, 25:99 pm - RK: hi"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "13/45/99", records[0].Date)
	assert.Equal(t, "25:99 pm", records[0].Time)
}

func TestReconstruct_NoBreakSpaceBeforeDelimiter(t *testing.T) {
	records, err := Reconstruct([]string{
		"3/6/21, 2:30 am - RK: hello",
		"3/6/21, 2:31 am\u00a0- Priya: on my way",
		"3/6/21, 2:32 am - RK: still here",
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Priya", records[1].Author)
	assert.Equal(t, "on my way", records[1].Message)
	assert.Equal(t, "still here", records[2].Message)
}

func TestReconstruct_EmptyEntry(t *testing.T) {
	lines := []string{
		"3/6/21, 2:30 am - RK: hi",
		"3/6/21, 2:31 am - ",
		"3/6/21, 2:32 am - RK: bye",
	}

	records, err := Reconstruct(lines)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Record{Date: "3/6/21", Time: "2:31 am", LineNum: 2}, records[1])
	assert.Equal(t, "bye", records[2].Message)

	streamed, err := ReadAll(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	assert.Equal(t, records, streamed)
}

func TestParseEntry_AcceptsEveryEntryStart(t *testing.T) {
	lines := []string{
		"3/6/21, 2:30 am - RK: hi",
		"3/6/21, 2:30 am -",
		"3/6/21,\u00a02:30\u00a0PM\u00a0-\u00a0x",
		"12/31/2021, 11:59 pm -RK: tight",
		"3/6/21, 2:30 am - - -",
	}
	for _, line := range lines {
		require.True(t, classifier.IsEntryStart(line), line)
		_, err := ParseEntry(line)
		assert.NoError(t, err, line)
	}
}

func TestParseEntry_NotAnEntryStart(t *testing.T) {
	_, err := ParseEntry("just some text - with a dash")
	assert.True(t, errors.Is(err, ErrMissingSeparator))
}

func TestReconstruct_RecordCountMatchesEntryStarts(t *testing.T) {
	lines := []string{
		"1/1/21, 9:00 am - A: one",
		"more",
		"1/1/21, 9:01 am - B: two",
		"1/1/21, 9:02 am - B was removed",
		"1/1/21, 9:03 am - C D: three",
		"and",
		"more",
	}

	records, err := Reconstruct(lines)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestReconstruct_OrderPreserved(t *testing.T) {
	// Timestamps deliberately out of order.
	lines := []string{
		"1/2/21, 9:00 am - A: second day",
		"1/1/21, 9:00 am - B: first day",
		"1/3/21, 9:00 am - C: third day",
	}

	records, err := Reconstruct(lines)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{records[0].Author, records[1].Author, records[2].Author})
	assert.Equal(t, []int{1, 2, 3}, []int{records[0].LineNum, records[1].LineNum, records[2].LineNum})
}

func TestReconstruct_Idempotent(t *testing.T) {
	lines := []string{
		"3/6/21, 2:30 am - RK: hello",
		"how are you?",
		"3/6/21, 2:31 am - Priya Sharma: I'm good",
	}

	first, err := Reconstruct(lines)
	require.NoError(t, err)
	second, err := Reconstruct(lines)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStep_Transitions(t *testing.T) {
	var s State
	assert.Equal(t, AwaitingFirstEntry, s.Phase)

	s, rec, err := Step(s, "3/6/21, 2:30 am - RK: hello")
	require.NoError(t, err)
	assert.Nil(t, rec, "first entry flushes nothing")
	assert.Equal(t, Accumulating, s.Phase)
	assert.Equal(t, []string{"hello"}, s.Buffer)

	s, rec, err = Step(s, "again")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, []string{"hello", "again"}, s.Buffer)

	s, rec, err = Step(s, "3/6/21, 2:31 am - Priya: bye")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "hello again", rec.Message)
	assert.Equal(t, "RK", rec.Author)
	assert.Equal(t, []string{"bye"}, s.Buffer)
	assert.Equal(t, 3, s.Lines)
	assert.Equal(t, 2, s.Entries)

	final := Finish(s)
	assert.Equal(t, "Priya", final.Author)
	assert.Equal(t, "bye", final.Message)
}

func TestStep_DoesNotModifyInput(t *testing.T) {
	before, _, err := Step(State{}, "3/6/21, 2:30 am - RK: hello")
	require.NoError(t, err)

	_, _, err = Step(before, "3/6/21, 2:31 am - Priya: bye")
	require.NoError(t, err)

	assert.Equal(t, []string{"hello"}, before.Buffer)
	assert.Equal(t, "RK", before.Author)
	assert.Equal(t, 1, before.Lines)
}

func TestStep_BranchesFromSameState(t *testing.T) {
	var s State
	for _, line := range []string{"3/6/21, 2:30 am - RK: a", "b", "c"} {
		var err error
		s, _, err = Step(s, line)
		require.NoError(t, err)
	}

	left, _, err := Step(s, "LEFT")
	require.NoError(t, err)
	right, _, err := Step(s, "RIGHT")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, s.Buffer)
	assert.Equal(t, "a b c LEFT", Finish(left).Message)
	assert.Equal(t, "a b c RIGHT", Finish(right).Message)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "awaiting_first_entry", AwaitingFirstEntry.String())
	assert.Equal(t, "accumulating", Accumulating.String())
	assert.Equal(t, "phase(7)", Phase(7).String())
}

func TestScanner_MatchesReconstruct(t *testing.T) {
	input := "3/6/21, 2:30 am - RK: hello\r\nhow are you?\r\n3/6/21, 2:31 am - Priya Sharma: I'm good\r\n"
	lines := strings.Split(strings.TrimSuffix(strings.ReplaceAll(input, "\r\n", "\n"), "\n"), "\n")

	want, err := Reconstruct(lines)
	require.NoError(t, err)

	got, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestScanner_Counters(t *testing.T) {
	s := NewScanner(strings.NewReader("3/6/21, 2:30 am - RK: a\nb\n3/6/21, 2:31 am - RK: c\n"))

	var n int
	for {
		_, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n++
	}

	assert.Equal(t, 2, n)
	assert.Equal(t, 3, s.Lines())
	assert.Equal(t, 2, s.Entries())

	_, err := s.Next()
	assert.Equal(t, io.EOF, err, "Next keeps returning io.EOF")
}

func TestScanner_EmptyReader(t *testing.T) {
	records, err := ReadAll(strings.NewReader(""))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Message)
}

func TestScanner_LineTooLong(t *testing.T) {
	long := strings.Repeat("x", MaxLineSize+1)
	_, err := ReadAll(strings.NewReader("3/6/21, 2:30 am - RK: hi\n" + long + "\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading transcript")
}
