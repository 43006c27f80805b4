package user

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	u := User{Username: "alice"}
	if err := u.SetPassword("s3cret"); err != nil {
		t.Fatalf("SetPassword err: %v", err)
	}
	if u.PasswordHash == "s3cret" {
		t.Fatal("password stored in clear text")
	}
	if !u.CheckPassword("s3cret") {
		t.Fatal("expected password to match")
	}
	if u.CheckPassword("wrong") {
		t.Fatal("expected wrong password to be rejected")
	}
}

func TestCheckPasswordWithoutHash(t *testing.T) {
	if (&User{Username: "bob"}).CheckPassword("") {
		t.Fatal("user without hash must never authenticate")
	}
}
