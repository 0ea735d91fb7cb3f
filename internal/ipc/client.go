package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"global-menu/pkg/core"
)

// SendCommand sends one command to the daemon listening on socketPath.
func SendCommand(socketPath string, command string, log core.Logger) (Response, error) {
	return Send(socketPath, Request{Command: command}, log)
}

// Send delivers req to the daemon listening on socketPath.
func Send(socketPath string, req Request, log core.Logger) (Response, error) {
	if log == nil {
		log = core.Nop()
	}

	log.Debug("Attempting to connect to socket server", "path", socketPath)

	conn, err := net.DialTimeout("unix", socketPath, connTimeout)
	if err != nil {
		log.Error("Failed to connect to socket server", err)
		return Response{}, fmt.Errorf("connect to %s (is the daemon running?): %w", socketPath, err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(connTimeout)); err != nil {
		return Response{}, err
	}

	log.Debug("Connected to socket server", "remote_addr", conn.RemoteAddr())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(req); err != nil {
		log.Error("Failed to encode request", err)
		return Response{}, err
	}

	log.Debug("Request sent successfully", "command", req.Command)

	var resp Response
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&resp); err != nil {
		log.Error("Failed to decode response", err)
		return Response{}, err
	}

	log.Debug("Response received", "status", resp.Status, "message", resp.Message)
	return resp, nil
}
