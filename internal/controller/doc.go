// Package controller owns the VAD run lifecycle: starting and stopping the
// microphone child process and pipeline task, and serving status and
// configuration queries from outside that task.
package controller
