package dto

// DefaultLimit is the page size of object listings without a limit.
const DefaultLimit = 100

// ListRequest pages through the objects of a class.
type ListRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// DefaultListRequest returns a list request with defaults
func DefaultListRequest() ListRequest {
	return ListRequest{Limit: DefaultLimit}
}

// DescribeRequest selects the rendering of a schema element.
type DescribeRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=table markdown md json yaml yml"`
}

// ExportRequest selects how objects are serialized. Profiles is a comma
// separated list of profile names.
type ExportRequest struct {
	Mode     string `form:"mode" binding:"omitempty,oneof=single multi"`
	Profiles string `form:"profiles"`
}
