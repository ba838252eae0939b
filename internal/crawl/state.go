package crawl

import (
	"container/heap"

	"github.com/ppiankov/parishscope/internal/extract"
	"github.com/ppiankov/parishscope/internal/model"
)

// frontier is a max-heap on priority; ties go to the shallower URL, then
// to the earlier insertion.
type frontier []*model.QueuedURL

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].Priority != f[j].Priority {
		return f[i].Priority > f[j].Priority
	}
	if f[i].Depth != f[j].Depth {
		return f[i].Depth < f[j].Depth
	}
	return f[i].Seq < f[j].Seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(*model.QueuedURL)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return item
}

// State is the frontier, visited set and remaining budget of one crawl.
// It is owned by a single Crawl call and is not safe for concurrent use.
type State struct {
	queue   frontier
	queued  map[string]*model.QueuedURL
	visited map[string]bool
	budget  int
	seq     int
}

// NewState creates an empty crawl state with the given fetch budget
func NewState(budget int) *State {
	return &State{
		queued:  make(map[string]*model.QueuedURL),
		visited: make(map[string]bool),
		budget:  budget,
	}
}

// Push enqueues a URL unless it was visited. A URL already waiting in the
// queue keeps its place but is raised to the better priority and depth.
func (s *State) Push(rawURL, anchor string, priority float64, depth int) bool {
	key := extract.NormalizeURL(rawURL)
	if key == "" || s.visited[key] {
		return false
	}

	if q, ok := s.queued[key]; ok {
		if priority > q.Priority || (priority == q.Priority && depth < q.Depth) {
			q.Priority = priority
			q.Depth = min(q.Depth, depth)
			heap.Init(&s.queue)
		}
		return false
	}

	q := &model.QueuedURL{URL: rawURL, Anchor: anchor, Priority: priority, Depth: depth, Seq: s.seq}
	s.seq++
	s.queued[key] = q
	heap.Push(&s.queue, q)
	return true
}

// Pop returns the best queued URL and charges it to the budget. It returns
// false when the queue is empty or the budget is spent.
func (s *State) Pop() (model.QueuedURL, bool) {
	for s.queue.Len() > 0 {
		if s.budget <= 0 {
			return model.QueuedURL{}, false
		}
		q := heap.Pop(&s.queue).(*model.QueuedURL)
		key := extract.NormalizeURL(q.URL)
		delete(s.queued, key)
		if s.visited[key] {
			continue
		}
		s.visited[key] = true
		s.budget--
		return *q, true
	}
	return model.QueuedURL{}, false
}

// Spend charges a fetch that did not come from the queue (sitemaps)
func (s *State) Spend() bool {
	if s.budget <= 0 {
		return false
	}
	s.budget--
	return true
}

// MarkVisited records a URL reached by redirect
func (s *State) MarkVisited(rawURL string) {
	key := extract.NormalizeURL(rawURL)
	if key == "" {
		return
	}
	// a queued copy stays in the heap; Pop skips it
	s.visited[key] = true
}

// Visited reports whether a URL was already fetched
func (s *State) Visited(rawURL string) bool {
	return s.visited[extract.NormalizeURL(rawURL)]
}

// Pending returns the number of queued URLs
func (s *State) Pending() int { return s.queue.Len() }

// Remaining returns the unspent budget
func (s *State) Remaining() int { return s.budget }

// Exhausted reports whether work remained when the budget ran out
func (s *State) Exhausted() bool { return s.budget <= 0 && s.queue.Len() > 0 }
