// Package ssdp implements the discovery side of an emulated media device.
//
// A Responder joins the SSDP multicast group, answers M-SEARCH queries
// for its service target with a unicast reply after a randomized delay,
// and multicasts periodic NOTIFY alive announcements.
package ssdp
