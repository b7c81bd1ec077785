package entity

// ServiceRequest is the stored classification outcome.
type ServiceRequest string

const (
	ServiceRequestYes ServiceRequest = "yes"
	ServiceRequestNo  ServiceRequest = "no"
)

// ServiceRequestFrom maps a classifier verdict to its stored label.
func ServiceRequestFrom(isRequest bool) ServiceRequest {
	if isRequest {
		return ServiceRequestYes
	}
	return ServiceRequestNo
}

// Placeholders stored when a field cannot be read from the page.
const (
	UnknownAuthor   = "Unknown Author"
	UnknownLocation = "Unknown Location"
	UnknownDate     = "Unknown Date"
	ContentNotFound = "Content not found"
)

// Post mirrors the `posts` table. Link is the identity of a post.
type Post struct {
	ID             int64
	Link           string
	Author         string
	Location       string
	Date           string // raw relative text as shown on the page, not persisted
	AbsoluteDate   string // MM/DD/YY, HH:MM, stored in the `date` column
	Content        string
	ServiceRequest ServiceRequest
	Processed      bool
}

// PostStatus is the lookup view of a stored post.
type PostStatus struct {
	Link           string
	CurrentStatus  string // "unprocessed", "processed", "not_found"
	ServiceRequest ServiceRequest
	Date           string
}
