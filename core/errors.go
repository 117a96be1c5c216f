package core

import (
	"errors"

	"launchpad/core/state"
	"launchpad/native/factory"
	"launchpad/native/gift"
	"launchpad/native/membership"
	"launchpad/native/nft"
	"launchpad/native/project"
	"launchpad/native/randomizer"
	"launchpad/native/roles"
	"launchpad/native/sale"
)

var ErrNodeClosed = errors.New("node: closed")

// rejections are the failures an engine reports for a caller mistake rather
// than an infrastructure fault.
var rejections = []error{
	project.ErrInvalidSetting, project.ErrInvalidNFTChecker, project.ErrInvalidFactory,
	project.ErrInvalidMembership, project.ErrInvalidOpFundReceiver, project.ErrInvalidSaleCreateLimit,
	project.ErrInvalidCloseLimit, project.ErrReachedSaleCreateLimit, project.ErrInvalidSaleTime,
	project.ErrInvalidInstantPayment, project.ErrInvalidToken, project.ErrInvalidMinSales,
	project.ErrInvalidCreateFee, project.ErrNotMember, project.ErrInvalidProfitShare,
	project.ErrNotManager, project.ErrProjectIsLive, project.ErrInvalidAccount,
	project.ErrAccountExists, project.ErrInvalidSaleAddress, project.ErrInvalidFee,
	project.ErrInvalidLimit, project.ErrNotOpFundReceiver, project.ErrNotSale,
	project.ErrAmountExceedsBalance, project.ErrDuplicateSetting, project.ErrInvalidProject,

	sale.ErrInvalidSetting, sale.ErrInvalidNFTChecker, sale.ErrInvalidProjectAddress,
	sale.ErrInvalidRandomizer, sale.ErrNotProject, sale.ErrNotOpFundReceiver,
	sale.ErrInvalidSale, sale.ErrInvalidSaleID, sale.ErrInvalidProject,
	sale.ErrSalesEmpty, sale.ErrInvalidAmount, sale.ErrInvalidPrice,
	sale.ErrInvalidTokenURI, sale.ErrProjectIsPack, sale.ErrProjectNotPack,
	sale.ErrInvalidWinner, sale.ErrSoldOut, sale.ErrInvalidValue,
	sale.ErrSaleNotAvailable, sale.ErrDuplicateSetting, sale.ErrInvalidSoftCap,
	sale.ErrRoyaltyChanged,

	roles.ErrNotSuperAdmin, roles.ErrNotAdmin, roles.ErrNotController, roles.ErrInvalidAccount,
	nft.ErrUnknownCollection, nft.ErrInvalidKind, nft.ErrNotMinter, nft.ErrNotOwner,
	nft.ErrNotApproved, nft.ErrInsufficient, nft.ErrUnknownToken, nft.ErrInvalidAmount,
	nft.ErrInvalidReceiver,
	factory.ErrNotController, factory.ErrInvalidOwner,
	membership.ErrAlreadyMember, membership.ErrInvalidAccount,
	randomizer.ErrInvalidRange,
	gift.ErrInvalidToken, gift.ErrLengthMismatch,
	state.ErrInsufficientBalance,
}

// IsRejection reports whether err is an engine failure reason that should be
// returned to the caller verbatim.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
