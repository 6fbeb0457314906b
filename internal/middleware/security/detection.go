// Package security resolves client addresses, flags suspicious requests and
// sets response security headers.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"brokeometer/internal/log"
)

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

var unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector handles suspicious request detection
type Detector struct {
	suspicious     int64
	trustedProxies []*net.IPNet
	logger         *log.Logger
}

// NewDetector trusts loopback and private networks to set forwarding headers.
func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Detector{
		logger: logger.WithComponent(log.ComponentSecurity),
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("::1/128"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether the request looks like a probe and
// returns the reason.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) (string, bool) {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return "pattern " + pattern, true
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range scannerAgents {
		if strings.Contains(userAgent, agent) {
			return "user agent " + agent, true
		}
	}

	for _, method := range unusualMethods {
		if r.Method == method {
			return "method " + method, true
		}
	}

	if len(r.URL.String()) > 2048 {
		return "long url", true
	}

	// More than 5 proxy hops is suspicious
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding chain", true
	}

	return "", false
}

// Middleware logs and counts suspicious requests. It never blocks them.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason, ok := d.DetectSuspiciousRequest(r); ok {
			atomic.AddInt64(&d.suspicious, 1)
			d.logger.WarnContext(r.Context(), "Suspicious request",
				log.FieldPath, r.URL.Path,
				log.FieldMethod, r.Method,
				log.FieldClientIP, d.ExtractClientIP(r),
				"reason", reason)
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the connecting address, or the forwarded client
// address when the connection comes from a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: atomic.LoadInt64(&d.suspicious)}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
