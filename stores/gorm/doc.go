//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of authcore.UserStore and
// authcore.SessionStore. It supports any database that GORM supports
// (PostgreSQL, MySQL, SQLite, etc.).
//
// # Database Schema
//
// AutoMigrate creates the following tables:
//   - users: accounts, unique on username
//   - sessions: server-side sessions for stateful mode
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	_ = gormstore.AutoMigrate(db)
//	auth, _ := authcore.New(authcore.Config{
//	    Mode:    authcore.ModeStateful,
//	    Storage: gormstore.NewStore(db),
//	})
package gorm
