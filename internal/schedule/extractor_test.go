package schedule_test

import (
	"context"
	"errors"
	"testing"

	"github.com/wtfconf/workflowybot/internal/schedule"
	"github.com/wtfconf/workflowybot/internal/workflowy"
)

type stubOutlineSource struct {
	nodes []workflowy.Node
	err   error
}

func (s stubOutlineSource) FetchOutline(context.Context) ([]workflowy.Node, error) {
	return s.nodes, s.err
}

type stubTitleSource struct {
	title string
	err   error
}

func (s stubTitleSource) FetchSharedTitle(context.Context) (string, error) {
	return s.title, s.err
}

func scheduleTree() []workflowy.Node {
	return []workflowy.Node{
		{
			Name: "Monday",
			Children: []workflowy.Node{
				{
					Name: "<b>Talk A</b>",
					Children: []workflowy.Node{
						{
							Name: "Room 1",
							// Depth three; never rendered.
							Children: []workflowy.Node{{Name: "Projector notes"}},
						},
					},
				},
			},
		},
		{
			Name: "Tuesday",
			Children: []workflowy.Node{
				{Name: "Talk B"},
			},
		},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []workflowy.Node
		query string
		want  string
	}{
		{
			name:  "case-insensitive substring match picks first node",
			nodes: scheduleTree(),
			query: "what's on monday?",
			want:  "Schedule for Monday: \n*Talk A*\n    -Room 1\n",
		},
		{
			name:  "second node matches when first does not",
			nodes: scheduleTree(),
			query: "anything scheduled for Tuesday",
			want:  "Schedule for Tuesday: \n*Talk B*\n",
		},
		{
			name:  "first match wins when query names both days",
			nodes: scheduleTree(),
			query: "monday or tuesday?",
			want:  "Schedule for Monday: \n*Talk A*\n    -Room 1\n",
		},
		{
			name:  "no match produces the apology with the original query",
			nodes: scheduleTree(),
			query: "what about Friday?",
			want:  "I'm sorry, I couldn't find anything on the schedule for what about Friday?",
		},
		{
			name: "markup tags are stripped across lines",
			nodes: []workflowy.Node{
				{
					Name: "Monday",
					Children: []workflowy.Node{
						{Name: "<span\nclass=\"x\">Keynote</span>"},
					},
				},
			},
			query: "monday",
			want:  "Schedule for Monday: \n*Keynote*\n",
		},
		{
			name: "unterminated tag content is emitted verbatim",
			nodes: []workflowy.Node{
				{
					Name:     "Monday",
					Children: []workflowy.Node{{Name: "<b>Talk</b> <real soon"}},
				},
			},
			query: "monday",
			want:  "Schedule for Monday: \n*Talk <real soon*\n",
		},
		{
			name: "empty node name never matches",
			nodes: []workflowy.Node{
				{Name: ""},
				{Name: "Monday", Children: []workflowy.Node{{Name: "Talk A"}}},
			},
			query: "monday",
			want:  "Schedule for Monday: \n*Talk A*\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := schedule.Render(tt.nodes, tt.query)
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutlineExtractor_Reply(t *testing.T) {
	t.Parallel()

	e := schedule.NewOutlineExtractor(stubOutlineSource{nodes: scheduleTree()}, nil)

	got, err := e.Reply(context.Background(), "what's on monday?")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if want := "Schedule for Monday: \n*Talk A*\n    -Room 1\n"; got != want {
		t.Errorf("Reply() = %q, want %q", got, want)
	}
}

func TestOutlineExtractor_Reply_FetchError(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("boom")
	e := schedule.NewOutlineExtractor(stubOutlineSource{err: fetchErr}, nil)

	if _, err := e.Reply(context.Background(), "monday"); !errors.Is(err, fetchErr) {
		t.Errorf("Reply() error = %v, want wrapped %v", err, fetchErr)
	}
}

func TestTitleExtractor_Reply(t *testing.T) {
	t.Parallel()

	e := schedule.NewTitleExtractor(stubTitleSource{title: "WTFConf Schedule"}, nil)

	got, err := e.Reply(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if got != "WTFConf Schedule" {
		t.Errorf("Reply() = %q, want %q", got, "WTFConf Schedule")
	}
}
