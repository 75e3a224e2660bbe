// Package clock provides a tiny time abstraction.
//
// Expiry decisions (recipient list TTLs, session cookies) read time through
// Clocker so tests can move time with Fixed instead of sleeping.
package clock
