// Package queue bounds the number of transcode processes that run at once.
//
// Admission is a fixed-interval poll with a hard deadline: a request that
// cannot get a slot within the configured wait (2s by default, checked
// every 250ms) fails with ErrQueueFull instead of blocking the HTTP
// response. Slots are released through Slot.Release, which is safe to defer
// and to call again on other exit paths.
package queue
