package portscan

var wellKnownServices = map[int]string{
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	143:  "IMAP",
	443:  "HTTPS",
	445:  "SMB",
	3306: "MySQL",
	3389: "RDP",
	5432: "PostgreSQL",
	8080: "HTTP-Proxy",
	8443: "HTTPS-Alt",
}

// ServiceName maps a port to its well-known service, "Unknown" otherwise.
func ServiceName(port int) string {
	if name, ok := wellKnownServices[port]; ok {
		return name
	}
	return "Unknown"
}
