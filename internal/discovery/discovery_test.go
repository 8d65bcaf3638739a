package discovery

import (
	"net"
	"testing"
)

func TestFromEntry(t *testing.T) {
	tests := []struct {
		name     string
		instance string
		info     []string
		addr     net.IP
		port     int
		want     Backend
		ok       bool
	}{
		{
			name:     "txt url wins",
			instance: "lab._oxyadmin._tcp.local.",
			info:     []string{"name=lab", "url=http://10.0.0.5:8000"},
			addr:     net.ParseIP("10.0.0.9"),
			port:     9000,
			want:     Backend{Name: "lab", URL: "http://10.0.0.5:8000"},
			ok:       true,
		},
		{
			name:     "address fallback",
			instance: "edge._oxyadmin._tcp.local.",
			addr:     net.ParseIP("192.168.1.2"),
			port:     8000,
			want:     Backend{Name: "edge", URL: "http://192.168.1.2:8000"},
			ok:       true,
		},
		{
			name:     "nothing to dial",
			instance: "ghost._oxyadmin._tcp.local.",
			info:     []string{"garbage"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fromEntry(tt.instance, tt.info, tt.addr, tt.port)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("fromEntry() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAdvertiseRejectsBadPort(t *testing.T) {
	if _, err := Advertise("x", 0, "http://localhost"); err == nil {
		t.Fatal("Advertise with port 0 succeeded")
	}
}
