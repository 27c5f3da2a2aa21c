//go:build !windows

package main

func enableDPIAwareness() {}
