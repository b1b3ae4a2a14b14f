// Package backend is the HTTP+JSON client of the election metadata backend.
// Failures are reported as dcrwallet errors whose kind describes the class
// of failure: NotExist, Permission, Encoding or IO.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"decred.org/dcrwallet/v2/errors"
	"github.com/crypto-power/cryptovote/libvote/utils"
)

const (
	DefaultHost = "http://localhost:5001"

	selectedCandidatesPath = "/getSelectedCandidates"
	electionsPath          = "/getElections"
	verifierPath           = "/verifier"
	publishResultsPath     = "/publishResults"

	tokenHeader = "token"
)

// Client talks to a single backend host.
type Client struct {
	host   string
	client *utils.Client
}

// NewClient returns a client for host. A zero timeout uses the http helper
// default.
func NewClient(host string, timeout time.Duration) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		host:   strings.TrimRight(host, "/"),
		client: utils.NewClient(timeout),
	}
}

// Host returns the backend base url.
func (c *Client) Host() string {
	return c.host
}

func (c *Client) makeRequest(ctx context.Context, op errors.Op, method, path, credential string,
	body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.E(op, errors.Encoding, err)
		}
		payload = b
	}

	req := &utils.ReqConfig{
		Payload:   payload,
		Method:    method,
		HTTPURL:   c.host + path,
		IsRetByte: true,
	}
	if credential != "" {
		req.Headers = map[string]string{tokenHeader: "Bearer " + credential}
	}

	var respBytes []byte
	resp, err := c.client.Do(ctx, req, &respBytes)
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("no response")
		}
		return nil, errors.E(op, errors.IO, err)
	}

	code := resp.StatusCode
	if err == nil && code != http.StatusOK {
		err = fmt.Errorf("status: %v", resp.Status)
	}

	switch {
	case code == http.StatusOK:
		if err != nil {
			return nil, errors.E(op, errors.IO, err)
		}
		return respBytes, nil
	case code > http.StatusOK && code < http.StatusMultipleChoices:
		b, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return nil, errors.E(op, errors.IO, rerr)
		}
		return b, nil
	case code == http.StatusNotFound:
		return nil, errors.E(op, errors.NotExist, err)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return nil, errors.E(op, errors.Permission, err)
	default:
		return nil, errors.E(op, errors.IO, err)
	}
}

// SelectedCandidates fetches one election and its candidate roster.
func (c *Client) SelectedCandidates(ctx context.Context, credential, electionID string) (*ElectionRecord, error) {
	const op errors.Op = "backend.SelectedCandidates"
	if credential == "" {
		return nil, errors.E(op, errors.Permission, "no credential")
	}

	body, err := c.makeRequest(ctx, op, http.MethodPost, selectedCandidatesPath, credential,
		&selectedCandidatesRequest{ElectionID: electionID})
	if err != nil {
		return nil, err
	}

	var reply selectedCandidatesReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	if reply.ElectionData == nil {
		return nil, errors.E(op, errors.NotExist, "empty election record")
	}

	log.Debugf("Fetched election %s with %d candidates", reply.ElectionData.ID, len(reply.Candidates))
	return &ElectionRecord{
		ElectionData: *reply.ElectionData,
		Candidates:   reply.Candidates,
	}, nil
}

// Elections fetches every election of a community.
func (c *Client) Elections(ctx context.Context, credential, communityKey string) ([]*ElectionRecord, error) {
	const op errors.Op = "backend.Elections"
	if credential == "" {
		return nil, errors.E(op, errors.Permission, "no credential")
	}

	path := electionsPath + "?" + url.Values{"community_key": []string{communityKey}}.Encode()
	body, err := c.makeRequest(ctx, op, http.MethodGet, path, credential, nil)
	if err != nil {
		return nil, err
	}

	records, err := decodeElectionList(body)
	if err != nil {
		return nil, errors.E(op, errors.Encoding, err)
	}
	log.Debugf("Fetched %d elections for community %q", len(records), communityKey)
	return records, nil
}

// Verify resolves a credential to the voter id it was issued for.
func (c *Client) Verify(ctx context.Context, credential string) (string, error) {
	const op errors.Op = "backend.Verify"
	if credential == "" {
		return "", errors.E(op, errors.Permission, "no credential")
	}

	body, err := c.makeRequest(ctx, op, http.MethodPost, verifierPath, "", &verifierRequest{Token: credential})
	if err != nil {
		return "", err
	}

	var reply verifierReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", errors.E(op, errors.Encoding, err)
	}
	if reply.Verified == nil || reply.Verified.ID == "" {
		return "", errors.E(op, errors.Permission, "credential was not verified")
	}
	return reply.Verified.ID, nil
}

// PublishResults stores the final tally of an election on the backend.
func (c *Client) PublishResults(ctx context.Context, credential, electionID string, rows []ResultRow) error {
	const op errors.Op = "backend.PublishResults"
	if credential == "" {
		return errors.E(op, errors.Permission, "no credential")
	}

	_, err := c.makeRequest(ctx, op, http.MethodPost, publishResultsPath, credential,
		&publishResultsRequest{ElectionID: electionID, Results: rows})
	return err
}
