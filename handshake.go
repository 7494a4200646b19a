// RTMP Handshake (the HMAC-SHA256 "complex" digest scheme used by recent
// Flash Player / FMS builds, with a fallback to the unsigned 1.0 handshake).

package main

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

const MESSAGE_FORMAT_0 = 0
const MESSAGE_FORMAT_1 = 1
const MESSAGE_FORMAT_2 = 2

const RTMP_SIG_SIZE = 1536
const SHA256DL = 32

var RandomCrud = []byte{
	0xf0, 0xee, 0xc2, 0x4a, 0x80, 0x68, 0xbe, 0xe8,
	0x2e, 0x00, 0xd0, 0xd1, 0x02, 0x9e, 0x7e, 0x57,
	0x6e, 0xec, 0x5d, 0x2d, 0x29, 0x80, 0x6f, 0xab,
	0x93, 0xb8, 0xe6, 0x36, 0xcf, 0xeb, 0x31, 0xae,
}

const GenuineFMSConst = "Genuine Adobe Flash Media Server 001"

var GenuineFMSConstCrud = append([]byte(GenuineFMSConst), RandomCrud...)

const GenuineFPConst = "Genuine Adobe Flash Player 001"

// Calculates HMAC
// message - The message
// key - Th key
// Returns the HMAC hash
func calcHmac(message []byte, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil)
}

// Compares two signatures
// sig1 - First signature
// sig2 - Second signature
// Returns true only if the two signatures are the same
func compareSignatures(sig1 []byte, sig2 []byte) bool {
	if len(sig1) != len(sig2) {
		return false
	}

	var result bool

	result = true

	for j := 0; j < len(sig1); j++ {
		result = result && (sig1[j] == sig2[j])
	}

	return result
}

// Gets the basic digest of the RTMP Genuine const of the client
// buf - Buffer to read from
// Returns the digest
func GetClientGenuineConstDigestOffset(buf []byte) uint32 {
	var offset uint32

	offset = uint32(buf[0]) + uint32(buf[1]) + uint32(buf[2]) + uint32(buf[3])
	offset = (offset % 728) + 12

	return offset
}

// Gets the basic digest of the RTMP Genuine const of the server
// buf - Buffer to read from
// Returns the digest
func GetServerGenuineConstDigestOffset(buf []byte) uint32 {
	var offset uint32

	offset = uint32(buf[0]) + uint32(buf[1]) + uint32(buf[2]) + uint32(buf[3])
	offset = (offset % 728) + 776

	return offset
}

// padOrTruncate forces b to exactly n bytes, zero-padding a short slice or
// cutting a long one. The digest HMAC is always computed over a fixed-size
// message with the digest itself removed from the middle.
func padOrTruncate(b []byte, n int) []byte {
	if len(b) < n {
		aux := make([]byte, n-len(b))
		return append(b, aux...)
	}
	return b[0:n]
}

// digestMessageAt builds the 1504-byte message used to verify or sign the
// digest located at offset dl (the signature itself, dl:dl+SHA256DL, is
// excised before padding).
func digestMessageAt(sig []byte, dl uint32) []byte {
	msg := make([]byte, dl)
	copy(msg, sig[0:dl])
	msg = append(msg, sig[(dl+SHA256DL):]...)
	return padOrTruncate(msg, 1504)
}

// Detects message format from client signature
// clientSig - Client signature
// Returns the message format as an int
func detectClientMessageFormat(clientSig []byte) uint32 {
	sdl := GetServerGenuineConstDigestOffset(clientSig[772:776])
	msg := digestMessageAt(clientSig, sdl)

	computedSignature := calcHmac(msg, []byte(GenuineFPConst))
	providedSignature := clientSig[sdl:(sdl + SHA256DL)]

	if compareSignatures(computedSignature, providedSignature) {
		return MESSAGE_FORMAT_2
	}

	sdl = GetClientGenuineConstDigestOffset(clientSig[8:12])
	msg = digestMessageAt(clientSig, sdl)

	computedSignature = calcHmac(msg, []byte(GenuineFPConst))
	providedSignature = clientSig[sdl:(sdl + SHA256DL)]

	if compareSignatures(computedSignature, providedSignature) {
		return MESSAGE_FORMAT_1
	}

	return MESSAGE_FORMAT_0
}

// Generates the first part of the RTMP server handshake response
// messageFormat - Client message format
// Returns the response
func generateS1(messageFormat uint32) []byte {
	var randomBytes = make([]byte, RTMP_SIG_SIZE-8)
	_, err := rand.Read(randomBytes)

	if err != nil {
		// This should never happen
		panic(err)
	}

	var handshakeBytes []byte
	var msg []byte

	handshakeBytes = []byte{
		0, 0, 0, 0, 1, 2, 3, 4,
	}

	handshakeBytes = append(handshakeBytes, randomBytes...)
	handshakeBytes = padOrTruncate(handshakeBytes, RTMP_SIG_SIZE)

	var serverDigestOffset uint32
	if messageFormat == MESSAGE_FORMAT_1 {
		serverDigestOffset = GetClientGenuineConstDigestOffset(handshakeBytes[8:12])
	} else {
		serverDigestOffset = GetClientGenuineConstDigestOffset(handshakeBytes[772:776])
	}

	msg = digestMessageAt(handshakeBytes, serverDigestOffset)

	var h = calcHmac(msg, []byte(GenuineFMSConst))

	for j := uint32(0); j < 32; j++ {
		handshakeBytes[serverDigestOffset+j] = h[j]
	}

	return handshakeBytes
}

// Generates the second part of the RTMP server handshake response
// messageFormat - Client message format
// clientSig - Client signature
// Returns the response
func generateS2(messageFormat uint32, clientSig []byte) []byte {
	var randomBytes = make([]byte, RTMP_SIG_SIZE-32)
	_, err := rand.Read(randomBytes)

	if err != nil {
		// This should never happen
		panic(err)
	}

	var challengeKeyOffset uint32

	if messageFormat == MESSAGE_FORMAT_1 {
		challengeKeyOffset = GetClientGenuineConstDigestOffset(clientSig[8:12])
	} else {
		challengeKeyOffset = GetServerGenuineConstDigestOffset(clientSig[772:776])
	}

	var challengeKey = clientSig[challengeKeyOffset:(challengeKeyOffset + 32)]

	var h []byte
	var signature []byte
	var s2Bytes []byte

	h = calcHmac(challengeKey, GenuineFMSConstCrud)
	signature = calcHmac(randomBytes, h)

	s2Bytes = append(randomBytes[:], signature...)
	s2Bytes = padOrTruncate(s2Bytes, RTMP_SIG_SIZE)

	return s2Bytes
}

// Generates a RTMP handshake response
// clientSig - Client signature received, exactly RTMP_SIG_SIZE bytes
// Returns the response to send to the client
func generateS0S1S2(clientSig []byte) ([]byte, error) {
	if len(clientSig) != RTMP_SIG_SIZE {
		return nil, fmt.Errorf("handshake: client signature must be %d bytes, got %d", RTMP_SIG_SIZE, len(clientSig))
	}

	var clientType []byte
	var messageFormat uint32
	var allBytes []byte

	clientType = []byte{RTMP_VERSION}
	messageFormat = detectClientMessageFormat(clientSig)

	if messageFormat == MESSAGE_FORMAT_0 {
		LogDebug("Using basic handshake")
		allBytes = append(clientType, clientSig...)
		allBytes = append(allBytes, clientSig...)
	} else {
		LogDebug("Using S1S2 handshake")
		s1 := generateS1(messageFormat)
		s2 := generateS2(messageFormat, clientSig)
		allBytes = append(clientType, s1...)
		allBytes = append(allBytes, s2...)
	}

	return allBytes, nil
}
