package collector

import (
	"strconv"
	"strings"
)

// SocketCounts summarizes the socket descriptors held by one process.
type SocketCounts struct {
	Total uint64
	TCP   uint64
	UDP   uint64
}

const socketPrefix = "socket:["

// socketInode extracts the inode from a "socket:[inode]" descriptor target.
func socketInode(target string) (uint64, bool) {
	if !strings.HasPrefix(target, socketPrefix) || !strings.HasSuffix(target, "]") {
		return 0, false
	}
	inode, err := strconv.ParseUint(target[len(socketPrefix):len(target)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}

// protoFromName maps a system.sockprotoname value to a Protocol.
func protoFromName(name string) Protocol {
	switch strings.TrimRight(name, "\x00") {
	case "TCP", "TCPv6":
		return ProtoTCP
	case "UDP", "UDPv6":
		return ProtoUDP
	default:
		return ProtoOther
	}
}

// classifySockets counts socket descriptors among targets and splits them by protocol.
// Inodes resolved per descriptor in own take precedence; the rest are looked up in the
// namespace table. Descriptors found in neither (sockets closed after the table was read,
// or a table that could not be read) only count toward Total.
func classifySockets(targets []string, own, table ProtocolTable) SocketCounts {
	var counts SocketCounts
	for _, target := range targets {
		inode, ok := socketInode(target)
		if !ok {
			continue
		}
		counts.Total++
		proto, ok := own[inode]
		if !ok {
			proto = table[inode]
		}
		switch proto {
		case ProtoTCP:
			counts.TCP++
		case ProtoUDP:
			counts.UDP++
		}
	}
	return counts
}

// unresolved reports whether some socket descriptor in targets is missing from own.
func unresolved(targets []string, own ProtocolTable) bool {
	for _, target := range targets {
		if inode, ok := socketInode(target); ok {
			if _, known := own[inode]; !known {
				return true
			}
		}
	}
	return false
}
