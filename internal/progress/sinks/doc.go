// Package sinks contains progress emitters that mirror run events elsewhere.
package sinks
