package ledger

import "strings"

// Script templates for the Ponder contract. The "0xPONDER" and "0xTOKEN"
// placeholders are replaced with the configured contract addresses before
// submission; the templates themselves never change at runtime.

const txCreatePonder = `
import Ponder from 0xPONDER
import PonderToken from 0xTOKEN

transaction(
    question: String,
    description: String,
    options: [String],
    durationHours: UFix64,
    minBet: UFix64,
    maxBet: UFix64,
    category: String
) {
    let manager: &Ponder.Manager
    let vault: &PonderToken.Vault

    prepare(signer: AuthAccount) {
        if signer.borrow<&Ponder.Manager>(from: Ponder.StoragePath) == nil {
            signer.save(<-Ponder.createManager(), to: Ponder.StoragePath)
            signer.link<&Ponder.Manager{Ponder.Public}>(Ponder.PublicPath, target: Ponder.StoragePath)
        }
        self.manager = signer.borrow<&Ponder.Manager>(from: Ponder.StoragePath)
            ?? panic("Could not borrow Manager")
        self.vault = signer.borrow<&PonderToken.Vault>(from: /storage/ponderTokenVault)
            ?? panic("Could not borrow token vault")
    }

    execute {
        let fee <- self.vault.withdraw(amount: 1.0)
        self.manager.createPonder(
            question: question,
            description: description,
            options: options,
            durationHours: durationHours,
            minBet: minBet,
            maxBet: maxBet,
            category: category,
            payment: <-fee
        )
    }
}
`

const txPlaceVote = `
import Ponder from 0xPONDER
import PonderToken from 0xTOKEN

transaction(ponderId: UInt64, option: UInt8, amount: UFix64) {
    let manager: &Ponder.Manager
    let vault: &PonderToken.Vault

    prepare(signer: AuthAccount) {
        self.manager = signer.borrow<&Ponder.Manager>(from: Ponder.StoragePath)
            ?? panic("Could not borrow Manager")
        self.vault = signer.borrow<&PonderToken.Vault>(from: /storage/ponderTokenVault)
            ?? panic("Could not borrow token vault")
    }

    execute {
        let stake <- self.vault.withdraw(amount: amount)
        self.manager.placeVote(ponderId: ponderId, option: option, payment: <-stake)
    }
}
`

const txFreeVote = `
import Ponder from 0xPONDER

transaction(ponderId: UInt64, option: UInt8) {
    let manager: &Ponder.Manager

    prepare(signer: AuthAccount) {
        self.manager = signer.borrow<&Ponder.Manager>(from: Ponder.StoragePath)
            ?? panic("Could not borrow Manager")
    }

    execute {
        self.manager.placeVote(ponderId: ponderId, option: option, payment: nil)
    }
}
`

const txWithdrawWinnings = `
import Ponder from 0xPONDER
import PonderToken from 0xTOKEN

transaction(ponderId: UInt64) {
    let manager: &Ponder.Manager
    let vault: &PonderToken.Vault

    prepare(signer: AuthAccount) {
        self.manager = signer.borrow<&Ponder.Manager>(from: Ponder.StoragePath)
            ?? panic("Could not borrow Manager")
        self.vault = signer.borrow<&PonderToken.Vault>(from: /storage/ponderTokenVault)
            ?? panic("Could not borrow token vault")
    }

    execute {
        let winnings <- self.manager.withdrawWinnings(ponderId: ponderId)
        self.vault.deposit(from: <-winnings)
    }
}
`

const scriptActivePonders = `
import Ponder from 0xPONDER

pub fun main(): [Ponder.Snapshot] {
    return getAccount(0xPONDER)
        .getCapability(Ponder.PublicPath)
        .borrow<&Ponder.Manager{Ponder.Public}>()!
        .getActivePonders()
}
`

const scriptGetPonder = `
import Ponder from 0xPONDER

pub fun main(ponderId: UInt64): Ponder.Snapshot? {
    return getAccount(0xPONDER)
        .getCapability(Ponder.PublicPath)
        .borrow<&Ponder.Manager{Ponder.Public}>()!
        .getPonder(id: ponderId)
}
`

const scriptUserStats = `
import Ponder from 0xPONDER

pub fun main(user: Address): Ponder.UserStats? {
    return getAccount(0xPONDER)
        .getCapability(Ponder.PublicPath)
        .borrow<&Ponder.Manager{Ponder.Public}>()!
        .getUserStats(user: user)
}
`

const scriptUserVotes = `
import Ponder from 0xPONDER

pub fun main(user: Address): [Ponder.Vote] {
    return getAccount(0xPONDER)
        .getCapability(Ponder.PublicPath)
        .borrow<&Ponder.Manager{Ponder.Public}>()!
        .getUserVotes(user: user)
}
`

const scriptLeaderboard = `
import Ponder from 0xPONDER

pub fun main(): [Address] {
    return getAccount(0xPONDER)
        .getCapability(Ponder.PublicPath)
        .borrow<&Ponder.Manager{Ponder.Public}>()!
        .getLeaderboard()
}
`

const scriptBalance = `
import PonderToken from 0xTOKEN

pub fun main(address: Address): UFix64 {
    return getAccount(address)
        .getCapability(/public/ponderTokenBalance)
        .borrow<&PonderToken.Vault{PonderToken.Balance}>()!
        .balance
}
`

// render substitutes the configured contract addresses into a template.
func (c *Client) render(tpl string) string {
	tpl = strings.ReplaceAll(tpl, "0xPONDER", c.contractAddr)
	return strings.ReplaceAll(tpl, "0xTOKEN", c.tokenAddr)
}
