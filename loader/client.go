package loader

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

//go:embed client/mrequires.js
var clientJS string

// ClientScript returns the browser loader initialised with the server's
// namespaces, each mapped to its /files/{ns}/ prefix.
func (s *Server) ClientScript() string {
	conf := make(map[string]string, len(s.nsIndex))
	for key, idx := range s.nsIndex {
		conf[key] = "/files/" + strconv.Itoa(idx) + "/"
	}
	data, _ := json.Marshal(conf)

	var b strings.Builder
	b.WriteString(clientJS)
	b.WriteString("mRequires.init(")
	b.Write(data)
	b.WriteString(");\n")
	return b.String()
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(s.ClientScript()))
}
