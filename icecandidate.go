// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"fmt"
	"net"

	"github.com/embedrtc/webrtc/internal/ice"
)

// ICECandidate represents a ice candidate.
type ICECandidate struct {
	statsID        string
	Foundation     string           `json:"foundation"`
	Priority       uint32           `json:"priority"`
	Address        string           `json:"address"`
	Protocol       ICEProtocol      `json:"protocol"`
	Port           uint16           `json:"port"`
	Typ            ICECandidateType `json:"type"`
	Component      uint16           `json:"component"`
	RelatedAddress string           `json:"relatedAddress"`
	RelatedPort    uint16           `json:"relatedPort"`
	TCPType        string           `json:"tcpType"`
	SDPMid         string           `json:"sdpMid"`
	SDPMLineIndex  uint16           `json:"sdpMLineIndex"`
	extensions     string
}

// Conversion for package ice.
func newICECandidatesFromICE(iceCandidates []*ice.Candidate) ([]ICECandidate, error) {
	candidates := []ICECandidate{}

	for _, i := range iceCandidates {
		c, err := newICECandidateFromICE(i)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

func newICECandidateFromICE(candidate *ice.Candidate) (ICECandidate, error) {
	typ, err := convertTypeFromICE(candidate.Typ)
	if err != nil {
		return ICECandidate{}, err
	}
	protocol, err := NewICEProtocol(candidate.NetworkType.NetworkShort())
	if err != nil {
		return ICECandidate{}, err
	}

	newCandidate := ICECandidate{
		Foundation: candidate.Foundation,
		Priority:   candidate.Priority(),
		Address:    candidate.IP.String(),
		Protocol:   protocol,
		Port:       uint16(candidate.Port), //nolint:gosec // G115
		Component:  uint16(candidate.Component),
		Typ:        typ,
	}

	if candidate.RelatedAddress != "" {
		newCandidate.RelatedAddress = candidate.RelatedAddress
		newCandidate.RelatedPort = uint16(candidate.RelatedPort) //nolint:gosec // G115
	}

	return newCandidate, nil
}

func (c ICECandidate) toICE() (*ice.Candidate, error) {
	ip := net.ParseIP(c.Address)
	if ip == nil {
		return nil, fmt.Errorf("%w: %s", errICECandidateTypeUnknown, c.Address)
	}

	network := c.Protocol.String()
	component := ice.Component(c.Component)

	var candidate *ice.Candidate
	var err error

	switch c.Typ {
	case ICECandidateTypeHost:
		candidate, err = ice.NewCandidateHost(network, ip, int(c.Port), component)
	case ICECandidateTypeSrflx:
		candidate, err = ice.NewCandidateServerReflexive(
			network, ip, int(c.Port), component, c.RelatedAddress, int(c.RelatedPort))
	case ICECandidateTypePrflx:
		candidate, err = ice.NewCandidatePeerReflexive(
			network, ip, int(c.Port), component, c.RelatedAddress, int(c.RelatedPort))
	case ICECandidateTypeRelay:
		candidate, err = ice.NewCandidateRelay(
			network, ip, int(c.Port), component, c.RelatedAddress, int(c.RelatedPort))
	default:
		return nil, fmt.Errorf("%w: %s", errICECandidateTypeUnknown, c.Typ)
	}

	if err != nil {
		return nil, err
	}

	if c.Foundation != "" {
		candidate.Foundation = c.Foundation
	}
	if c.Priority != 0 {
		candidate.SetPriority(c.Priority)
	}

	return candidate, nil
}

func convertTypeFromICE(t ice.CandidateType) (ICECandidateType, error) {
	switch t {
	case ice.CandidateTypeHost:
		return ICECandidateTypeHost, nil
	case ice.CandidateTypeServerReflexive:
		return ICECandidateTypeSrflx, nil
	case ice.CandidateTypePeerReflexive:
		return ICECandidateTypePrflx, nil
	case ice.CandidateTypeRelay:
		return ICECandidateTypeRelay, nil
	default:
		return ICECandidateType(t), fmt.Errorf("%w: %s", errICECandidateTypeUnknown, t)
	}
}

func (c ICECandidate) String() string {
	ic, err := c.toICE()
	if err != nil {
		return fmt.Sprintf("%#v failed to convert to ICE: %s", c, err)
	}

	return ic.String()
}

// ToJSON returns an ICECandidateInit
// as indicated by the spec https://w3c.github.io/webrtc-pc/#dom-rtcicecandidate-tojson
func (c ICECandidate) ToJSON() ICECandidateInit {
	candidateStr := ""

	candidate, err := c.toICE()
	if err == nil {
		candidateStr = candidate.Marshal()
	}

	return ICECandidateInit{
		Candidate:     fmt.Sprintf("candidate:%s", candidateStr),
		SDPMid:        &c.SDPMid,
		SDPMLineIndex: &c.SDPMLineIndex,
	}
}
