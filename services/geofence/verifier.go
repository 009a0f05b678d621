package geofence

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	goutils "go.viam.com/utils"

	"github.com/boardlens/boardlens/logging"
)

// maxVerifyResponseBytes bounds the verification response body.
const maxVerifyResponseBytes = 1 << 16

var (
	// ErrVerifyUnavailable is returned when the verification server cannot be reached or answers
	// with an error status.
	ErrVerifyUnavailable = errors.New("verification server unavailable")
	// ErrNoGate is returned by a LocalVerifier that was built without a gate.
	ErrNoGate = errors.New("local verifier has no gate")
)

// Verification is the authoritative answer for a position.
type Verification struct {
	Authorized bool
	ZoneName   string
}

// A Verifier decides whether a position is authorized.
type Verifier interface {
	Verify(ctx context.Context, pos Position) (Verification, error)
}

// RemoteVerifier asks the zone directory server whether a position is authorized. Every request
// carries a fresh cachebuster.
type RemoteVerifier struct {
	endpoint *url.URL
	client   *http.Client
	logger   logging.Logger
}

// NewRemoteVerifier returns a verifier for endpoint. A nil client uses http.DefaultClient.
func NewRemoteVerifier(endpoint string, client *http.Client, logger logging.Logger) (*RemoteVerifier, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid verification endpoint %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("verification endpoint %q must be http or https", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteVerifier{endpoint: u, client: client, logger: logger}, nil
}

// Verify issues GET <endpoint>?lat=&lon=&t= and reads "found" and "college_name".
func (v *RemoteVerifier) Verify(ctx context.Context, pos Position) (Verification, error) {
	if pos.Point == nil {
		return Verification{}, errors.New("no location fix to verify")
	}
	u := *v.endpoint
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(pos.Point.Lat(), 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(pos.Point.Lng(), 'f', -1, 64))
	q.Set("t", uuid.NewString())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Verification{}, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Verification{}, ctx.Err()
		}
		return Verification{}, errors.Wrapf(ErrVerifyUnavailable, "request failed: %v", err)
	}
	defer goutils.UncheckedErrorFunc(resp.Body.Close)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verification{}, errors.Wrapf(ErrVerifyUnavailable, "status %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxVerifyResponseBytes)).Decode(&body); err != nil {
		return Verification{}, errors.Wrap(err, "malformed verification response")
	}
	out := Verification{
		Authorized: cast.ToBool(body["found"]),
		ZoneName:   cast.ToString(body["college_name"]),
	}
	v.logger.Debugw("remote verification", "authorized", out.Authorized, "zone", out.ZoneName)
	return out, nil
}

// LocalVerifier authorizes positions using only a gate's zones. It is meant for offline use.
type LocalVerifier struct {
	Gate *Gate
}

// Verify evaluates pos against the gate's zones.
func (v LocalVerifier) Verify(ctx context.Context, pos Position) (Verification, error) {
	if v.Gate == nil {
		return Verification{}, ErrNoGate
	}
	d := v.Gate.Evaluate(pos)
	return Verification{Authorized: d.Inside, ZoneName: d.ZoneName}, nil
}
