package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coveyhq/covey/pkg/log"
	"github.com/coveyhq/covey/pkg/types"
)

const (
	// DefaultEndpoint is the Azure Instance Metadata Service address,
	// reachable only from inside the VM.
	DefaultEndpoint = "http://169.254.169.254"

	apiVersion = "2021-02-01"

	requestTimeout = 10 * time.Second
)

// ErrMetadataUnavailable indicates the local metadata endpoint was
// unreachable or returned a malformed document. Fatal for the whole
// pass; there is no retry at this layer.
var ErrMetadataUnavailable = errors.New("instance metadata unavailable")

// Client queries the instance metadata service for the identity of
// the VM it runs on. Read-only; no side effects.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a metadata client against the standard IMDS
// endpoint.
func NewClient() *Client {
	return NewClientWithEndpoint(DefaultEndpoint)
}

// NewClientWithEndpoint creates a metadata client against a custom
// endpoint. Used by tests to point at a stub server.
func NewClientWithEndpoint(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// instanceDocument mirrors the slice of the IMDS response covey
// needs. IMDS nests the primary private IP three levels deep under
// the network section.
type instanceDocument struct {
	Compute struct {
		Name              string `json:"name"`
		Location          string `json:"location"`
		ResourceGroupName string `json:"resourceGroupName"`
	} `json:"compute"`
	Network struct {
		Interface []struct {
			IPv4 struct {
				IPAddress []struct {
					PrivateIPAddress string `json:"privateIpAddress"`
				} `json:"ipAddress"`
			} `json:"ipv4"`
		} `json:"interface"`
	} `json:"network"`
}

// Identity fetches the instance identity snapshot. Fails with
// ErrMetadataUnavailable if the endpoint is unreachable, answers
// non-200, or the document is missing required fields.
func (c *Client) Identity(ctx context.Context) (types.InstanceIdentity, error) {
	logger := log.WithComponent("metadata")

	url := fmt.Sprintf("%s/metadata/instance?api-version=%s&format=json", c.endpoint, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.InstanceIdentity{}, fmt.Errorf("%w: building request: %v", ErrMetadataUnavailable, err)
	}
	// IMDS rejects requests without this header to defeat SSRF.
	req.Header.Set("Metadata", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.InstanceIdentity{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.InstanceIdentity{}, fmt.Errorf("%w: endpoint returned %s", ErrMetadataUnavailable, resp.Status)
	}

	var doc instanceDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return types.InstanceIdentity{}, fmt.Errorf("%w: decoding document: %v", ErrMetadataUnavailable, err)
	}

	identity := types.InstanceIdentity{
		ID:            doc.Compute.Name,
		Location:      doc.Compute.Location,
		ResourceGroup: doc.Compute.ResourceGroupName,
		PrivateIP:     primaryPrivateIP(doc),
	}

	if identity.ID == "" || identity.Location == "" || identity.ResourceGroup == "" || identity.PrivateIP == "" {
		return types.InstanceIdentity{}, fmt.Errorf("%w: document missing required fields", ErrMetadataUnavailable)
	}

	logger.Debug().
		Str("vm", identity.ID).
		Str("private_ip", identity.PrivateIP).
		Str("location", identity.Location).
		Str("resource_group", identity.ResourceGroup).
		Msg("resolved instance identity")

	return identity, nil
}

func primaryPrivateIP(doc instanceDocument) string {
	for _, iface := range doc.Network.Interface {
		for _, addr := range iface.IPv4.IPAddress {
			if addr.PrivateIPAddress != "" {
				return addr.PrivateIPAddress
			}
		}
	}
	return ""
}
