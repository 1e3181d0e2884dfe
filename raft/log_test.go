package raft

import "testing"

func TestLog_ConsistentEmptyPrefix(t *testing.T) {
	var l Log
	if !l.Consistent(0, 0) {
		t.Fatal("an empty prefix is always consistent")
	}
}

func TestLog_ConsistentRequiresMatchingPrefixTerm(t *testing.T) {
	l := Log{entries: []LogEntry{{Term: 1, Command: "a"}, {Term: 2, Command: "b"}}}

	if !l.Consistent(2, 2) {
		t.Fatal("prefix of full length with matching last term should be consistent")
	}
	if l.Consistent(2, 1) {
		t.Fatal("mismatched prefix term should be inconsistent")
	}
	if l.Consistent(3, 2) {
		t.Fatal("prefix longer than the log itself should be inconsistent")
	}
}

func TestLog_AppendTruncatesConflictingSuffix(t *testing.T) {
	l := Log{entries: []LogEntry{{Term: 1, Command: "a"}, {Term: 1, Command: "b"}}}

	l.Append([]LogEntry{{Term: 2, Command: "c"}}, 1)

	if l.Length() != 2 {
		t.Fatalf("expected length 2 after truncate+append, got %d", l.Length())
	}
	if l.At(1).Command != "c" || l.At(1).Term != 2 {
		t.Fatalf("expected entry 1 to be the new entry, got %+v", l.At(1))
	}
}

func TestLog_AppendNoopWhenAlreadyCaughtUp(t *testing.T) {
	l := Log{entries: []LogEntry{{Term: 1, Command: "a"}}}
	l.Append(nil, 1)
	if l.Length() != 1 {
		t.Fatalf("expected no-op append to leave length unchanged, got %d", l.Length())
	}
}

func TestLog_AppendPanicsOnCommittedTruncation(t *testing.T) {
	l := Log{entries: []LogEntry{{Term: 1, Command: "a"}, {Term: 1, Command: "b"}}, committedLength: 2}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when truncation would cut into the committed prefix")
		}
	}()
	l.Append([]LogEntry{{Term: 2, Command: "c"}}, 0)
}

func TestLog_AdvanceCommitNeverGoesBackwards(t *testing.T) {
	l := Log{entries: []LogEntry{{Term: 1, Command: "a"}, {Term: 1, Command: "b"}}}
	l.advanceCommit(2)
	l.advanceCommit(1)
	if l.CommittedLength() != 2 {
		t.Fatalf("expected committedLength to stay at 2, got %d", l.CommittedLength())
	}
}

func TestLog_RenderFormat(t *testing.T) {
	l := Log{entries: []LogEntry{{Term: 3, Command: `enqueue("hi")`}}}
	want := "Term: 3 | Method: enqueue(\"hi\")\n"
	if got := l.Render(); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestMajorityFloor(t *testing.T) {
	cases := []struct {
		vals []int
		want int
	}{
		{[]int{5}, 5},
		{[]int{5, 3, 4}, 4},
		{[]int{0, 0, 5}, 0},
		{[]int{10, 10, 10, 0, 0}, 10},
	}
	for _, c := range cases {
		if got := majorityFloor(c.vals); got != c.want {
			t.Errorf("majorityFloor(%v) = %d, want %d", c.vals, got, c.want)
		}
	}
}
