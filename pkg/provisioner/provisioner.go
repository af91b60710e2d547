// Package provisioner implements the node registration protocol of §6:
// "on start, each NodeActor looks up the provisioner (if configured),
// sends NodeReady(nodeId). The provisioner waits for numberOfNodes
// NodeReady messages, then triggers worker creation on every node in a
// deterministic id order."
package provisioner

import (
	"fmt"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NodeReady is the registration message a NodeActor sends once its local
// bootstrap has finished. Token proves the sender holds a token minted
// by this deployment's Provisioner, so a spoofed or unauthenticated
// process can't inflate the ready count.
type NodeReady struct {
	NodeID int
	Token  string
}

// Provisioner is the seam §6 describes. A NodeActor asks it for a token
// before announcing itself ready; the provisioner accumulates verified
// NodeReady arrivals until every expected node has checked in, then
// fires its OnAllReady callbacks with node ids in ascending order.
type Provisioner interface {
	IssueToken(nodeID int) (string, error)
	Register(ready NodeReady) error
	OnAllReady(action func(nodeIDs []int))
}

// LocalProvisioner is the default, single-process provisioner (§6: no
// YARN/SSH-style external scheduler is in scope). It mints and verifies
// tokens against its own shared secret, standing in for whatever
// out-of-process registration authority a distributed deployment would
// run instead.
type LocalProvisioner struct {
	secret        []byte
	numberOfNodes int
	tokenTTL      time.Duration

	registered map[int]bool
	onAllReady []func(nodeIDs []int)
	fired      bool
}

// DefaultTokenTTL bounds how long an issued token remains valid; a node
// that doesn't register within this window must request a new one.
const DefaultTokenTTL = time.Minute

// NewLocal builds a LocalProvisioner expecting exactly numberOfNodes
// distinct NodeReady registrations before it fires.
func NewLocal(secret []byte, numberOfNodes int) *LocalProvisioner {
	return &LocalProvisioner{
		secret:        secret,
		numberOfNodes: numberOfNodes,
		tokenTTL:      DefaultTokenTTL,
		registered:    make(map[int]bool),
	}
}

// IssueToken mints a short-lived HS256 JWT carrying nodeID as a claim,
// in the same SigningMethodHS256/MapClaims shape the teacher's
// JWTTokenGenerator.Generate uses.
func (p *LocalProvisioner) IssueToken(nodeID int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"node_id": nodeID,
		"iat":     now.Unix(),
		"exp":     now.Add(p.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("provisioner: sign token for node %d: %w", nodeID, err)
	}
	return signed, nil
}

// Register verifies ready.Token against this provisioner's secret and,
// once every expected node has registered, fires OnAllReady with node
// ids sorted ascending (§6 "deterministic id order").
func (p *LocalProvisioner) Register(ready NodeReady) error {
	nodeID, err := p.verify(ready.Token)
	if err != nil {
		return err
	}
	if nodeID != ready.NodeID {
		return fmt.Errorf("provisioner: token node_id %d does not match NodeReady.NodeID %d", nodeID, ready.NodeID)
	}

	p.registered[ready.NodeID] = true
	if len(p.registered) < p.numberOfNodes || p.fired {
		return nil
	}
	p.fired = true

	nodeIDs := make([]int, 0, len(p.registered))
	for id := range p.registered {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Ints(nodeIDs)
	for _, action := range p.onAllReady {
		action(nodeIDs)
	}
	return nil
}

// OnAllReady registers a callback to run once every expected node has
// registered. Registering after the provisioner has already fired is a
// no-op: there is exactly one firing per provisioner instance.
func (p *LocalProvisioner) OnAllReady(action func(nodeIDs []int)) {
	p.onAllReady = append(p.onAllReady, action)
}

func (p *LocalProvisioner) verify(tokenString string) (int, error) {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return p.secret, nil
	}
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return 0, fmt.Errorf("provisioner: invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("provisioner: invalid token claims")
	}
	nodeIDFloat, ok := claims["node_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("provisioner: token missing node_id claim")
	}
	return int(nodeIDFloat), nil
}
