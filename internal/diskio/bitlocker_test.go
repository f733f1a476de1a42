package diskio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseManageBdeStatus_LockedEncryptedVolume(t *testing.T) {
	const text = `BitLocker Drive Encryption: Configuration Tool version 10.0.19041
Copyright (C) 2013 Microsoft Corporation. All rights reserved.

Volume D: [Data]
[Data Volume]

    Size:                 Unknown GB
    BitLocker Version:    2.0
    Conversion Status:    Unknown
    Percentage Encrypted: Unknown%
    Encryption Method:    XTS-AES 128
    Protection Status:    Unknown
    Lock Status:          Locked
    Identification Field: Unknown
`
	state := parseManageBdeStatus(text)
	require.True(t, state.Encrypted)
	require.True(t, state.Locked)
}

func TestParseManageBdeStatus_UnlockedEncryptedVolume(t *testing.T) {
	const text = `Volume C: [Windows]
[OS Volume]

    Conversion Status:    Fully Encrypted
    Percentage Encrypted: 100.0%
    Protection Status:    Protection On
    Lock Status:          Unlocked
`
	state := parseManageBdeStatus(text)
	require.True(t, state.Encrypted)
	require.False(t, state.Locked)
}

func TestParseManageBdeStatus_PlainVolume(t *testing.T) {
	const text = `Volume E: [Backup]
[Data Volume]

    Conversion Status:    Fully Decrypted
    Percentage Encrypted: 0.0%
    Protection Status:    Protection Off
    Lock Status:          Unlocked
`
	state := parseManageBdeStatus(text)
	require.False(t, state.Encrypted)
	require.False(t, state.Locked)
}

func TestParseManageBdeStatus_EmptyOutputIsZeroState(t *testing.T) {
	state := parseManageBdeStatus("")
	require.False(t, state.Encrypted)
	require.False(t, state.Locked)
}
