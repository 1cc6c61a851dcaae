// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package network

import (
	"net"

	"github.com/emitter-io/address"
)

// GetIP 返回地址中的主机部分，IPv6 不带方括号
func GetIP(addr net.Addr) string {
	if ip := addrIP(addr); ip != nil {
		return ip.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// GetLocalIP 返回本机的非回环 IPv4 地址，诊断接口用它报告推送端的可达地址
func GetLocalIP() []string {
	addrs, _ := net.InterfaceAddrs()
	ips := []string{}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP.String())
		}
	}
	return ips
}

// IsLocalAddr 判断连接的对端是否在本机
func IsLocalAddr(addr net.Addr) bool {
	ip := addrIP(addr)
	if ip == nil {
		tcpAddr, err := address.Parse(addr.String(), 0)
		if err != nil {
			return false
		}
		ip = tcpAddr.IP
	}
	return IsLocalhostIP(ip)
}

// IsLocalhostIP 判断是否为本机IP：回环地址或本机网卡上的私有地址
func IsLocalhostIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true
	}

	privs, err := address.GetPrivate()
	if err != nil {
		return false
	}
	for _, priv := range privs {
		if priv.IP.Equal(ip) {
			return true
		}
	}
	return false
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	return nil
}
