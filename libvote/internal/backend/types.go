package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ElectionData is an election record as stored by the backend.
type ElectionData struct {
	ID              string `json:"_id"`
	ElectionName    string `json:"electionName"`
	ElectionAddress string `json:"election_address"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	CommunityKey    string `json:"community_key,omitempty"`
}

// Candidate is a roster entry. Username is the key votes are counted under
// on the election contract.
type Candidate struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
}

// ElectionRecord is an election together with its candidate roster.
type ElectionRecord struct {
	ElectionData
	Candidates []Candidate `json:"candidates"`
}

// selectedCandidatesReply is the getSelectedCandidates reply shape.
type selectedCandidatesReply struct {
	ElectionData *ElectionData `json:"electionData"`
	Candidates   []Candidate   `json:"candidates"`
}

type selectedCandidatesRequest struct {
	ElectionID string `json:"electionId"`
}

type verifierRequest struct {
	Token string `json:"token"`
}

type verifierReply struct {
	Verified *struct {
		ID string `json:"id"`
	} `json:"verified"`
}

// ResultRow is a single published tally row.
type ResultRow struct {
	CandidateID string  `json:"candidateId"`
	Username    string  `json:"username"`
	VoteCount   int64   `json:"voteCount"`
	Percentage  float64 `json:"percentage"`
}

type publishResultsRequest struct {
	ElectionID string      `json:"electionId"`
	Results    []ResultRow `json:"results"`
}

// decodeRecord reads either a nested {electionData, candidates} object or a
// flat election record with an embedded candidates list.
func decodeRecord(raw json.RawMessage) (*ElectionRecord, error) {
	var nested selectedCandidatesReply
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	if nested.ElectionData != nil {
		return &ElectionRecord{
			ElectionData: *nested.ElectionData,
			Candidates:   nested.Candidates,
		}, nil
	}

	var flat ElectionRecord
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	return &flat, nil
}

// decodeElectionList accepts the three shapes getElections is known to
// return: a bare array, {elections: [...]} or a single record.
func decodeElectionList(body []byte) ([]*ElectionRecord, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
	case '{':
		var wrapper struct {
			Elections    []json.RawMessage `json:"elections"`
			ElectionData json.RawMessage   `json:"electionData"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, err
		}
		switch {
		case wrapper.Elections != nil:
			items = wrapper.Elections
		case len(wrapper.ElectionData) > 0:
			items = []json.RawMessage{body}
		default:
			// {} or an unrelated object means no elections.
			return nil, nil
		}
	default:
		return nil, fmt.Errorf("unexpected elections payload starting with %q", body[0])
	}

	records := make([]*ElectionRecord, 0, len(items))
	for i, item := range items {
		record, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("election %d: %v", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}
