// Package confsig binds live configuration sources to reactive signals.
//
// A Binding watches a source (a file, or any Watcher), unmarshals each
// change (YAML or JSON), validates it, and commits it to a signal that
// memos and effects depend on like any other reactive value:
//
//	type ServerConfig struct {
//	    Port    int    `yaml:"port" validate:"min=1,max=65535"`
//	    LogPath string `yaml:"log_path" validate:"required"`
//	}
//
//	binding, err := confsig.Bind[ServerConfig](rt, confsig.NewFileWatcher("server.yaml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer binding.Close()
//
//	attune.CreateEffect(rt, func() attune.Cleanup {
//	    cfg, ok := binding.Current()
//	    if ok {
//	        listener.Rebind(cfg.Port)
//	    }
//	    return nil
//	})
//
// Invalid changes never reach consumers: the previous configuration
// stays committed, the binding turns Degraded, and LastError says why.
// Rapid successive writes are debounced so only the settled contents
// get processed.
package confsig
