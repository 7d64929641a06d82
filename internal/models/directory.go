package models

import "time"

type Worker struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Site struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
