// Package webbridge connects browser windows to server-side storage
// backings. Each window opens a WebSocket to the bridge and serves its
// localStorage and sessionStorage areas over a small JSON protocol; the
// bridge exposes every connected window as a storage.SlotStore, so a
// storage.WebStorage backing can read, write, and watch the browser's slots
// from the server.
//
// Storage events fired in the browser (including writes made by other tabs
// on the same area) are forwarded to the bridge and fan out to the
// listeners registered through SlotStore.Events, which is what drives
// cross-tab synchronization for synced entries.
package webbridge
