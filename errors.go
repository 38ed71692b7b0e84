/*
Copyright © 2026 mlee8150 <mlee8150@gmail.com>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	// ErrRoomNotFound is returned when a join or write targets a room
	// code with no live room behind it.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull is returned when a third distinct player attempts to
	// join a two-player room.
	ErrRoomFull = errors.New("room is full")

	// ErrRoomExists is returned by the store on a room code collision.
	ErrRoomExists = errors.New("room already exists")

	// ErrNotHost is returned when a progression writer is requested by a
	// player other than the room's host.
	ErrNotHost = errors.New("player is not the room host")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
