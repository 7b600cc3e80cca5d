package olm_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"olm/olm"
)

// TestScenarioLongConversationSurvivesInterleavedDHRatchets exercises a
// long back-and-forth exchange (many messages each way, several DH
// ratchet steps) end to end, the kind of scenario a pinned libolm
// vector would cover if one were reachable here.
func TestScenarioLongConversationSurvivesInterleavedDHRatchets(t *testing.T) {
	r := require.New(t)

	alice, err := olm.NewAccount(rand.Reader)
	r.NoError(err)
	bob, err := olm.NewAccount(rand.Reader)
	r.NoError(err)
	r.NoError(bob.GenerateOneTimeKeys(1, rand.Reader))
	bobIdentity, bobOTK := identityAndOneTimeKey(t, bob)

	sessionA, err := olm.CreateOutbound(alice, bobIdentity, bobOTK, rand.Reader)
	r.NoError(err)

	msgType, ct, err := sessionA.Encrypt([]byte("round 0 from alice"), rand.Reader)
	r.NoError(err)
	sessionB, err := olm.CreateInbound(bob, ct)
	r.NoError(err)
	r.NoError(bob.RemoveOneTimeKeys(sessionB))
	pt, err := sessionB.Decrypt(msgType, ct, rand.Reader)
	r.NoError(err)
	r.Equal("round 0 from alice", string(pt))

	for round := 1; round <= 10; round++ {
		typeAB, ctAB, err := sessionA.Encrypt([]byte("from alice"), rand.Reader)
		r.NoError(err)
		ptB, err := sessionB.Decrypt(typeAB, ctAB, rand.Reader)
		r.NoError(err)
		r.Equal("from alice", string(ptB))

		_, ctBA, err := sessionB.Encrypt([]byte("from bob"), rand.Reader)
		r.NoError(err)
		ptA, err := sessionA.Decrypt(1, ctBA, rand.Reader)
		r.NoError(err)
		r.Equal("from bob", string(ptA))
	}

	r.Equal(sessionA.SessionID(), sessionB.SessionID())
}

// TestScenarioGroupFanOutToMultipleRecipients exercises one sender's
// outbound group session decrypted independently by several recipients
// who joined at different points in the ratchet's lifetime.
func TestScenarioGroupFanOutToMultipleRecipients(t *testing.T) {
	r := require.New(t)

	out, err := olm.NewOutboundGroupSession(rand.Reader)
	r.NoError(err)

	earlyShare := out.SessionKey()
	ct0, err := out.Encrypt([]byte("message zero"))
	r.NoError(err)
	ct1, err := out.Encrypt([]byte("message one"))
	r.NoError(err)

	lateShare := out.SessionKey()
	ct2, err := out.Encrypt([]byte("message two"))
	r.NoError(err)

	earlyMember, err := olm.NewInboundGroupSession(earlyShare)
	r.NoError(err)
	pt0, idx0, err := earlyMember.Decrypt(ct0)
	r.NoError(err)
	r.Equal(uint32(0), idx0)
	r.Equal("message zero", string(pt0))
	pt1, idx1, err := earlyMember.Decrypt(ct1)
	r.NoError(err)
	r.Equal(uint32(1), idx1)
	r.Equal("message one", string(pt1))

	lateMember, err := olm.NewInboundGroupSession(lateShare)
	r.NoError(err)
	_, _, err = lateMember.Decrypt(ct0)
	r.Error(err, "a member joining at index 2 must not decrypt an earlier message")
	pt2, idx2, err := lateMember.Decrypt(ct2)
	r.NoError(err)
	r.Equal(uint32(2), idx2)
	r.Equal("message two", string(pt2))
}

// TestScenarioSASVerificationThenSessionEstablishment runs a short
// authentication string exchange alongside establishing a two-party
// session between the same two parties, mirroring how a real client
// pairs identity verification with session setup.
func TestScenarioSASVerificationThenSessionEstablishment(t *testing.T) {
	r := require.New(t)

	sasA, err := olm.NewSAS(rand.Reader)
	r.NoError(err)
	sasB, err := olm.NewSAS(rand.Reader)
	r.NoError(err)
	r.NoError(sasA.SetTheirKey(sasB.GetPubkey()))
	r.NoError(sasB.SetTheirKey(sasA.GetPubkey()))

	codeA, err := sasA.GenerateBytes("MATRIX_KEY_VERIFICATION_SAS", 5)
	r.NoError(err)
	codeB, err := sasB.GenerateBytes("MATRIX_KEY_VERIFICATION_SAS", 5)
	r.NoError(err)
	r.Equal(codeA, codeB)

	alice, err := olm.NewAccount(rand.Reader)
	r.NoError(err)
	bob, err := olm.NewAccount(rand.Reader)
	r.NoError(err)
	r.NoError(bob.GenerateOneTimeKeys(1, rand.Reader))
	bobIdentity, bobOTK := identityAndOneTimeKey(t, bob)

	sessionA, err := olm.CreateOutbound(alice, bobIdentity, bobOTK, rand.Reader)
	r.NoError(err)
	msgType, ct, err := sessionA.Encrypt([]byte("verified and encrypted"), rand.Reader)
	r.NoError(err)
	sessionB, err := olm.CreateInbound(bob, ct)
	r.NoError(err)
	pt, err := sessionB.Decrypt(msgType, ct, rand.Reader)
	r.NoError(err)
	r.Equal("verified and encrypted", string(pt))
}
