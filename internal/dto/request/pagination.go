package request

import "scrim-booking/pkg/utils"

// PaginatedRequest is built from the page and per_page query parameters.
type PaginatedRequest struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Normalize clamps the request in place and returns the limit and offset for the ledger query.
func (p *PaginatedRequest) Normalize() (limit, offset int) {
	p.Page, p.PerPage = utils.NormalizePage(p.Page, p.PerPage)
	return p.PerPage, utils.CalculateOffset(p.Page, p.PerPage)
}
