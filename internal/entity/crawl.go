package entity

import "time"

// CrawlOutcome is the caller-visible result of an extraction run.
type CrawlOutcome int

const (
	// CrawlCompleted covers limit exhaustion, no new content and outer-loop faults.
	CrawlCompleted CrawlOutcome = iota
	// CrawlAborted means the browsing session died; the caller should log in again.
	CrawlAborted
)

func (o CrawlOutcome) String() string {
	if o == CrawlAborted {
		return "aborted"
	}
	return "completed"
}

// CrawlStats summarises one extraction run.
type CrawlStats struct {
	Passes          int
	NewLinks        int
	DistinctLinks   int // links in the run's seen set when it ended
	SkippedSeen     int
	SkippedExisting int
	Duplicates      int
	Processed       int
	ItemErrors      int
	RepliesPosted   int
	StopReason      string
	Elapsed         time.Duration
}

// Draft is a classifier verdict plus the outreach message, if any.
// It only lives between classification and the approval step.
type Draft struct {
	IsServiceRequest bool
	Message          string
}

// HasReply reports whether the draft should be offered for approval.
func (d Draft) HasReply() bool {
	return d.IsServiceRequest && d.Message != ""
}

// SearchResult reports the two search stages independently.
type SearchResult struct {
	Submitted bool
	Filtered  bool
}

// OK is true when the query was submitted and the posts filter applied.
func (r SearchResult) OK() bool {
	return r.Submitted && r.Filtered
}

// InsertResult disambiguates the outcome of storing a post.
type InsertResult int

const (
	Inserted InsertResult = iota
	Duplicate
	StorageError
)

// Saved is true only when the post was newly stored.
func (r InsertResult) Saved() bool { return r == Inserted }

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	default:
		return "storage_error"
	}
}
