// +build !js

package ice

import (
	"github.com/embedrtc/webrtc/pkg/rtcerr"
)

// Server describes a single STUN and TURN server that can be used by
// the Agent to establish a connection with a peer.
type Server struct {
	URLs           []string
	Username       string
	Credential     interface{}
	CredentialType CredentialType
}

// OAuthCredential represents a token credential used to access a TURN
// server, as described in https://tools.ietf.org/html/rfc7635.
type OAuthCredential struct {
	MACKey      string
	AccessToken string
}

func (s Server) parseURL(i int) (*URL, error) {
	return ParseURL(s.URLs[i])
}

// Validate checks if the Server struct is valid.
func (s Server) Validate() error {
	_, err := s.urls()
	return err
}

func (s Server) urls() ([]*URL, error) {
	urls := []*URL{}

	for i := range s.URLs {
		url, err := s.parseURL(i)
		if err != nil {
			return nil, err
		}

		if url.Scheme == SchemeTypeTURN || url.Scheme == SchemeTypeTURNS {
			// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.2)
			if s.Username == "" || s.Credential == nil {
				return nil, &rtcerr.InvalidAccessError{Err: ErrNoTurnCredencials}
			}
			url.Username = s.Username

			switch s.CredentialType {
			case CredentialTypePassword:
				// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.3)
				password, ok := s.Credential.(string)
				if !ok {
					return nil, &rtcerr.InvalidAccessError{Err: ErrTurnCredencials}
				}
				url.Password = password

			case CredentialTypeOauth:
				// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.4)
				if _, ok := s.Credential.(OAuthCredential); !ok {
					return nil, &rtcerr.InvalidAccessError{Err: ErrTurnCredencials}
				}

			default:
				return nil, &rtcerr.InvalidAccessError{Err: ErrTurnCredencials}
			}
		}

		urls = append(urls, url)
	}

	return urls, nil
}
