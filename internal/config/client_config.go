package config

import (
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/utils"
)

const (
	apiBasePath = "/api/v1"

	baseURLEnvVar = "API_BASE_URL"
	originEnvVar  = "API_ORIGIN"
	timeoutEnvVar = "API_TIMEOUT"
	claimsEnvVar  = "DECODE_PROFILE_CLAIMS"

	defaultDevBaseURL = "http://127.0.0.1:18080" + apiBasePath
	defaultOrigin     = "http://localhost"
	defaultTimeout    = 10 * time.Second
	defaultExpirySkew = 60 * time.Second
)

type Client struct {
	file *fileConfig
}

var _ ClientConfig = Client{}

// GetAPIBaseURL selects the API root by environment. Development talks to a
// local backend directly, anything else goes through the deployment origin.
func (c Client) GetAPIBaseURL() string {
	if (EnvVars{file: c.file}).isDev() {
		return strings.TrimRight(lookup(baseURLEnvVar, c.file.API.BaseURL, defaultDevBaseURL), "/")
	}
	origin := strings.TrimRight(lookup(originEnvVar, c.file.API.Origin, defaultOrigin), "/")
	return origin + apiBasePath
}

func (c Client) GetRequestTimeout() time.Duration {
	if v := GetEnv(timeoutEnvVar, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if c.file.API.Timeout > 0 {
		return c.file.API.Timeout
	}
	return defaultTimeout
}

// GetExpirySkew is how long before the reported expiry a token counts as expiring.
func (Client) GetExpirySkew() time.Duration {
	return defaultExpirySkew
}

func (c Client) GetDecodeProfileClaims() bool {
	switch GetEnv(claimsEnvVar, "") {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	if c.file.API.DecodeProfileClaims != nil {
		return utils.Value(c.file.API.DecodeProfileClaims)
	}
	return true
}
