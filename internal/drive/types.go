package drive

import "time"

// File is the part of a Drive file's metadata the tools hand back.
type File struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	MimeType     string     `json:"mimeType"`
	IsFolder     bool       `json:"isFolder,omitempty"`
	Size         int64      `json:"size,omitempty"`
	ModifiedTime *time.Time `json:"modifiedTime,omitempty"`
	// Owner is the email address of the first owner.
	Owner       string `json:"owner,omitempty"`
	WebViewLink string `json:"webViewLink,omitempty"`
	Trashed     bool   `json:"trashed,omitempty"`
}

// Page is one page of a file listing.
type Page struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// ListOptions narrows a listing. Query uses the Drive search syntax, for
// example "name contains 'report'".
type ListOptions struct {
	Query          string
	PageSize       int
	PageToken      string
	IncludeTrashed bool
}
