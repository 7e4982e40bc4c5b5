// Package models defines the domain types shared by the session, resolver and sync layers.
//
// The package contains two categories of types:
//
// 1. Session state
//   - [Credential] : access token, refresh token and absolute expiry
//   - [IdentityClaims] : identity decoded from the access token payload (unverified)
//
// 2. Normalized records: the canonical shape of each resource family, whichever endpoint variant produced it
//   - [CallRecord] : one entry of call history
//   - [Recording] : a stored call recording
//   - [PhoneNumber] : a personal or platform phone number
//   - [Account] : account profile, possibly synthesized from claims
//
// All normalized records implement [Record] so they can flow through the resolver generically.
package models
