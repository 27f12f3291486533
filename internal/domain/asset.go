package domain

// Asset is the view of an asset-management record this layer needs when
// validating assignment and alarm references. Assets are owned by the
// external asset-management service and never persisted here.
type Asset struct {
	ID       string `json:"id"`
	Token    string `json:"token"`
	Name     string `json:"name,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}
