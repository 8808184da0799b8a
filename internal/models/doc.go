// Package models defines domain entities and persistence interfaces for the ytmproxy service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): catalog payloads returned by the API surface
//   - [Track] : Song or video row with artists, duration and thumbnails
//   - [Album] : Album metadata with its track listing
//   - [Playlist] : Playlist metadata with its track listing
//   - [Lyrics] : Lyrics text and attribution
//
// 2. Persistent Entities: database-backed records
//   - [Resolution] : One stream resolution outcome, with every failed attempt that preceded it
//
// Persistent entities implement the [Model] interface providing ID, creation time and validation.
package models
