// Package mail sends plain-text email over SMTP.
//
// Callers open a Session, send any number of messages on it, then close it.
// The server connection and authentication happen once per Session, so a
// batch of recipients costs a single login.
package mail
