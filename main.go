package main

func main() {
	cfg := LoadConfig()
	ApplyLogConfig(cfg)

	LogInfo("RTMP Go Server (Version 1.0.0)")

	server := CreateRTMPServer(cfg)
	if server == nil {
		return
	}

	if cfg.ControlBaseURL != "" {
		control := &ControlServerConnection{}
		control.Initialize(server, cfg)
		server.SetKeyValidator(control)
	} else {
		server.SetKeyValidator(NewHTTPCallbackValidator(cfg))
	}

	go setupMessageBusCommandReceiver(server, cfg)

	server.Start()
}
