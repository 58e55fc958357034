package model

// Credential is a provisioned API user. Rows are created out-of-band
// by cmd/createuser and only ever read by the auth gateway.
type Credential struct {
	ID             int    `json:"-"`
	Username       string `json:"username"`
	HashedPassword string `json:"-"`
}
