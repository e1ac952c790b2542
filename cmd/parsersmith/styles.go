package main

import "github.com/charmbracelet/lipgloss"

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)
