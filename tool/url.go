package tool

import (
	"fmt"

	"github.com/blume-tech/jetson-app/types"
)

// BuildStreamURL builds the URL for one stream candidate. Credentials are
// embedded userinfo-style, which is what both MJPEG cameras and RTSP servers
// expect.
func BuildStreamURL(c types.StreamCandidate) string {
	if c.Credential.IsAnonymous() {
		return fmt.Sprintf("%s://%s:%d%s", c.Scheme, c.Endpoint.Address, c.Endpoint.Port, c.Path)
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d%s",
		c.Scheme, c.Credential.Username, c.Credential.Password,
		c.Endpoint.Address, c.Endpoint.Port, c.Path)
}
