package domain

// CandidateCode is a commodity code proposed as a possible match for a
// product, paired with its description from the reference data.
type CandidateCode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// MatchResult is the outcome of a best-match selection. An empty BestCode
// means no candidate could be tied to the model's reply.
type MatchResult struct {
	BestCode  string `json:"bestCode,omitempty"`
	Reasoning string `json:"reasoning"`
}

// ProductInfo carries everything derived for a single product: the
// generated classification, the candidate commodity codes found in the
// reference data, and the selected best match. Computed once per request,
// never persisted.
type ProductInfo struct {
	Name               string
	Type               string
	Information        string
	HSCodes            []string
	Sources            map[string][]string
	Matches            []CandidateCode
	BestCode           string
	BestReasoning      string
	ClassificationRule string
}

// BestMatch returns the candidate entry for the selected best code,
// when one was selected and is present among the candidates.
func (p *ProductInfo) BestMatch() (CandidateCode, bool) {
	if p.BestCode == "" {
		return CandidateCode{}, false
	}
	for _, candidate := range p.Matches {
		if candidate.Code == p.BestCode {
			return candidate, true
		}
	}
	return CandidateCode{}, false
}

// ClassifyRequest is the JSON body accepted by the classify API
type ClassifyRequest struct {
	ProductName string `json:"product_name" binding:"required"`
}
